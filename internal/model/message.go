package model

import "time"

type MessageStatus string

const (
	MessageStatusQueued    MessageStatus = "QUEUED"
	MessageStatusScheduled MessageStatus = "SCHEDULED"
	MessageStatusSent      MessageStatus = "SENT"
	MessageStatusFailed    MessageStatus = "FAILED"
)

type Message struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement;column:id;<-:create"`
	UserID             string        `gorm:"column:user_id;index"`
	Body               string        `gorm:"column:body;type:text"`
	Status             MessageStatus `gorm:"column:status;index"`
	Recipients         int           `gorm:"column:recipients"`
	SegmentsPerMessage int           `gorm:"column:segments_per_message"`
	ScheduledAt        *time.Time    `gorm:"column:scheduled_at;index"`
	SentAt             *time.Time    `gorm:"column:sent_at"`
	FailedAt           *time.Time    `gorm:"column:failed_at"`
	LastError          *string       `gorm:"column:last_error;type:text"`
	CreatedAt          time.Time     `gorm:"column:created_at"`
	UpdatedAt          time.Time     `gorm:"column:updated_at"`
}
