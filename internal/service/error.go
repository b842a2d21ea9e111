package service

import "errors"

const (
	ErrCodeDatabase = "DATABASE_ERROR"
	ErrCodeGateway  = "GATEWAY_ERROR"
)

var (
	ErrMessageNotFound     = errors.New("MESSAGE_NOT_FOUND")
	ErrInsufficientQuota   = errors.New("INSUFFICIENT_QUOTA")
	ErrMissingSenderID     = errors.New("MISSING_SENDER_ID")
	ErrJobAlreadyProcessed = errors.New("JOB_ALREADY_PROCESSED")
	ErrJobBeingProcessed   = errors.New("JOB_BEING_PROCESSED")
	ErrAllRecipientsFailed = errors.New("ALL_RECIPIENTS_FAILED")
	ErrPurchaseNotFound    = errors.New("PURCHASE_NOT_FOUND")
	ErrDatabase            = errors.New("DATABASE_ERROR")
)

type Error struct {
	Code  string
	Cause error
}

func NewServiceError(code string, cause error) error {
	return Error{Code: code, Cause: cause}
}

func (e Error) Error() string {
	return e.Cause.Error()
}

func (e Error) Unwrap() error {
	return e.Cause
}
