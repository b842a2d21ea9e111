package model

import "time"

const (
	QuotaReasonPurchase         = "purchase"
	QuotaReasonPurchaseReversal = "purchase_reversal"
	QuotaReasonSendSMS          = "send_sms"
	QuotaReasonScheduledSend    = "scheduled_send"
	QuotaReasonRetriesExhausted = "retries_exhausted"
	QuotaReasonRefund           = "refund"
	QuotaReasonApplyFailed      = "quota_apply_failed"
)

// QuotaBalance is the live per-user counter. Every mutation goes through a
// single guarded UPDATE so concurrent workers cannot lose updates.
type QuotaBalance struct {
	UserID    string    `gorm:"primaryKey;column:user_id;type:varchar(64)"`
	Balance   int64     `gorm:"column:balance;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// QuotaLedgerEntry is the append-only audit record written alongside each
// balance mutation. The (reason, related_id) unique key is what makes
// debit-once-per-message and refund-once-per-message hold under retries.
type QuotaLedgerEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;<-:create"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);not null;index"`
	Amount    int64     `gorm:"column:amount;not null"`
	Reason    string    `gorm:"column:reason;type:varchar(32);not null;index:idx_reason_related,unique"`
	RelatedID string    `gorm:"column:related_id;type:varchar(64);not null;index:idx_reason_related,unique"`
	CreatedAt time.Time `gorm:"column:created_at"`
}
