package v1

type SendMessageResponse struct {
	MessageID          int64  `json:"message_id"`
	Status             string `json:"status"`
	TotalRecipients    int    `json:"total_recipients"`
	SegmentsPerMessage int    `json:"segments_per_message"`
	TotalSegments      int64  `json:"total_segments"`
}

type QuotaResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

type PurchaseResponse struct {
	UserID         string `json:"user_id"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}
