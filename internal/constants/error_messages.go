package constants

const (
	ErrCodeInsufficientQuota  = "INSUFFICIENT_QUOTA"
	ErrCodeInvalidPhones      = "INVALID_PHONE_NUMBERS"
	ErrCodeEmptyRecipients    = "EMPTY_RECIPIENTS"
	ErrCodeEmptyBody          = "EMPTY_MESSAGE_BODY"
	ErrCodeMessageNotFound    = "MESSAGE_NOT_FOUND"
	ErrCodeMissingSenderID    = "MISSING_SENDER_ID"
	ErrCodeDuplicatePurchase  = "DUPLICATE_PURCHASE"
	ErrCodePurchaseNotFound   = "PURCHASE_NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeInvalidRequestBody = "INVALID_REQUEST_BODY"
)

const (
	ErrMsgInsufficientQuota  = "quota balance does not cover this message"
	ErrMsgInvalidPhones      = "one or more phone numbers are invalid"
	ErrMsgEmptyRecipients    = "message has no recipients"
	ErrMsgEmptyBody          = "message body is empty"
	ErrMsgMessageNotFound    = "message not found"
	ErrMsgMissingSenderID    = "user has no registered sender id"
	ErrMsgDuplicatePurchase  = "purchase already applied"
	ErrMsgPurchaseNotFound   = "purchase not found"
	ErrMsgInternalError      = "Internal server error"
	ErrMsgInvalidRequestBody = "failed to parse request body"
)

var errorMessages = map[string]string{
	ErrCodeInsufficientQuota:  ErrMsgInsufficientQuota,
	ErrCodeInvalidPhones:      ErrMsgInvalidPhones,
	ErrCodeEmptyRecipients:    ErrMsgEmptyRecipients,
	ErrCodeEmptyBody:          ErrMsgEmptyBody,
	ErrCodeMessageNotFound:    ErrMsgMessageNotFound,
	ErrCodeMissingSenderID:    ErrMsgMissingSenderID,
	ErrCodeDuplicatePurchase:  ErrMsgDuplicatePurchase,
	ErrCodePurchaseNotFound:   ErrMsgPurchaseNotFound,
	ErrCodeInternalError:      ErrMsgInternalError,
	ErrCodeInvalidRequestBody: ErrMsgInvalidRequestBody,
}

func GetErrorMessage(code string) string {
	if msg, exists := errorMessages[code]; exists {
		return msg
	}
	return ErrMsgInternalError
}

func GetHTTPStatus(code string) int {
	switch code {
	case ErrCodeInvalidRequestBody, ErrCodeInvalidPhones, ErrCodeEmptyRecipients, ErrCodeEmptyBody:
		return 400
	case ErrCodeMessageNotFound, ErrCodePurchaseNotFound:
		return 404
	case ErrCodeInsufficientQuota, ErrCodeDuplicatePurchase, ErrCodeMissingSenderID:
		return 409
	case ErrCodeInternalError:
		return 500
	default:
		return 500
	}
}
