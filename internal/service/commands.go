package service

import (
	"time"

	"github.com/NDERI007/simflow/internal/sms"
)

const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
)

type CreateMessageCommand struct {
	UserID        string
	Body          string
	ManualNumbers []string
	GroupContacts []sms.GroupContact
	ScheduledAt   *time.Time
}

type CreateMessageResponse struct {
	MessageID          int64
	TotalRecipients    int
	SegmentsPerMessage int
	TotalSegments      int64
	Status             string
}

// BatchJobCommand is the queue payload for one batch child. The job id is
// deterministic: sms-<message_id>-batch-<index>.
type BatchJobCommand struct {
	JobID              string            `json:"job_id"`
	MessageID          int64             `json:"message_id"`
	UserID             string            `json:"user_id"`
	Message            string            `json:"message"`
	ToNumbers          []string          `json:"to_number"`
	ContactMap         map[string]*int64 `json:"contact_map"`
	SegmentsPerMessage int               `json:"segmentsPerMessage"`
	Metadata           BatchMetadata     `json:"metadata"`
}

type BatchMetadata struct {
	Source     string `json:"source"`
	BatchIndex int    `json:"batchIndex"`
}

// RetryPolicy is the per-child retry contract: bounded attempts with
// exponential backoff starting at InitialDelay.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

type EnqueueMessageCommand struct {
	MessageID  int64
	UserID     string
	Body       string
	Recipients sms.RecipientSet
	Source     string
	Policy     RetryPolicy
}

type QuotaCheckResult struct {
	HasQuota  bool
	Available int64
	Required  int64
}

type QuotaMutationCommand struct {
	UserID    string
	Amount    int64
	Reason    string
	RelatedID string
}
