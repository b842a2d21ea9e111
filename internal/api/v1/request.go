package v1

type GroupContactRequest struct {
	ContactID int64  `json:"contact_id"`
	Phone     string `json:"phone"`
}

type SendMessageRequest struct {
	UserID        string                `json:"user_id"`
	Body          string                `json:"body"`
	ManualNumbers []string              `json:"manual_numbers"`
	GroupContacts []GroupContactRequest `json:"group_contacts"`
	ScheduledAt   *string               `json:"scheduled_at"`
}

type PurchaseRequest struct {
	UserID         string `json:"user_id"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}
