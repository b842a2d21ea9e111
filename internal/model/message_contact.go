package model

import "time"

type ContactStatus string

const (
	ContactStatusPending ContactStatus = "PENDING"
	ContactStatusSuccess ContactStatus = "SUCCESS"
	ContactStatusFailed  ContactStatus = "FAILED"
)

// MessageContact records the delivery outcome of one (message, recipient)
// pair. Phone is the identity column: ContactID is nil for ad-hoc numbers,
// so the upsert key is (message_id, phone).
type MessageContact struct {
	ID        int64         `gorm:"primaryKey;autoIncrement;<-:create"`
	MessageID int64         `gorm:"column:message_id;not null;index:idx_message_phone,unique"`
	Phone     string        `gorm:"column:phone;type:varchar(32);not null;index:idx_message_phone,unique"`
	ContactID *int64        `gorm:"column:contact_id"`
	Status    ContactStatus `gorm:"column:status;index"`
	Code      *string       `gorm:"column:code;type:varchar(16)"`
	LastError *string       `gorm:"column:last_error;type:text"`
	CreatedAt time.Time     `gorm:"column:created_at"`
	UpdatedAt time.Time     `gorm:"column:updated_at"`
}
