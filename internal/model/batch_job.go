package model

import "time"

type BatchJobStatus string

const (
	BatchJobStatusPending    BatchJobStatus = "PENDING"
	BatchJobStatusQueued     BatchJobStatus = "QUEUED"
	BatchJobStatusRunning    BatchJobStatus = "RUNNING"
	BatchJobStatusFailedTemp BatchJobStatus = "FAILED_TEMP"
	BatchJobStatusFailedPerm BatchJobStatus = "FAILED_PERM"
)

// BatchParent groups a message's child jobs for bookkeeping. It is disposable:
// deleted once every child has completed. Children are the unit of execution.
type BatchParent struct {
	ID              string    `gorm:"primaryKey;column:id;type:varchar(64);<-:create"`
	MessageID       int64     `gorm:"column:message_id;not null;index"`
	TotalRecipients int       `gorm:"column:total_recipients;not null"`
	ChildCount      int       `gorm:"column:child_count;not null"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

// BatchJob is one 500-recipient slice of a message. The deterministic ID
// (sms-<message>-batch-<index>) makes re-enqueue a duplicate-key no-op.
// Completed jobs are deleted; failed jobs are retained for inspection.
type BatchJob struct {
	ID                 string            `gorm:"primaryKey;column:id;type:varchar(64);<-:create"`
	ParentID           string            `gorm:"column:parent_id;type:varchar(64);not null;index"`
	MessageID          int64             `gorm:"column:message_id;not null;index"`
	UserID             string            `gorm:"column:user_id;type:varchar(64);not null"`
	BatchIndex         int               `gorm:"column:batch_index;not null"`
	Body               string            `gorm:"column:body;type:text"`
	Phones             []string          `gorm:"column:phones;serializer:json;type:json"`
	ContactMap         map[string]*int64 `gorm:"column:contact_map;serializer:json;type:json"`
	SegmentsPerMessage int               `gorm:"column:segments_per_message;not null"`
	Source             string            `gorm:"column:source;type:varchar(16);not null"`
	Status             BatchJobStatus    `gorm:"column:status;index"`
	AttemptCount       int               `gorm:"column:attempt_count;not null"`
	MaxAttempts        int               `gorm:"column:max_attempts;not null"`
	InitialDelayMS     int64             `gorm:"column:initial_delay_ms;not null"`
	NextAttemptAt      *time.Time        `gorm:"column:next_attempt_at;index"`
	LastError          *string           `gorm:"column:last_error;type:text"`
	CreatedAt          time.Time         `gorm:"column:created_at"`
	UpdatedAt          time.Time         `gorm:"column:updated_at"`
}
