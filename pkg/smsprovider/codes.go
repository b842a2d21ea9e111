package smsprovider

// FailureType classifies a per-recipient outcome code for retry policy.
type FailureType string

const (
	TypeRetriable    FailureType = "RETRIABLE"
	TypeNonRetriable FailureType = "NON_RETRIABLE"
	TypeUnknown      FailureType = "UNKNOWN"
)

// CodeSuccess is the provider's accepted-for-delivery code.
const CodeSuccess = "000"

// Synthetic codes for transport-level faults, one per failed phone.
const (
	CodeTimeout       = "TIMEOUT"
	CodeNetworkError  = "NETWORK_ERROR"
	CodeBadResponse   = "BAD_RESPONSE"
	CodeInternalError = "INTERNAL_ERROR"
)

// Transient gateway conditions: a later attempt can succeed.
var retriableCodes = map[string]struct{}{
	"007":            {}, // gateway busy
	"008":            {}, // throttled
	"009":            {}, // temporary routing failure
	"998":            {}, // provider internal error
	CodeTimeout:      {},
	CodeNetworkError: {},
}

// Permanent rejections: retrying the same recipient cannot succeed.
var nonRetriableCodes = map[string]struct{}{
	"004": {}, // invalid number format
	"005": {}, // blacklisted number
	"006": {}, // sender id not approved
	"011": {}, // insufficient provider credit
	"013": {}, // message content rejected
}

// Classify maps a provider outcome code to its retry classification.
// Codes outside both sets are UNKNOWN, which the default policy retries.
func Classify(code string) FailureType {
	if _, ok := retriableCodes[code]; ok {
		return TypeRetriable
	}
	if _, ok := nonRetriableCodes[code]; ok {
		return TypeNonRetriable
	}
	return TypeUnknown
}
