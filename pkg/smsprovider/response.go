package smsprovider

type RecipientStatus string

const (
	StatusSuccess RecipientStatus = "success"
	StatusFailed  RecipientStatus = "failed"
)

// Result is the normalized per-recipient outcome. The adapter guarantees one
// Result per requested phone regardless of how the provider call went.
type Result struct {
	Phone   string
	Status  RecipientStatus
	Code    string
	Message string
	Type    FailureType
}

type bulkRequest struct {
	SenderID          string             `json:"SenderId"`
	APIKey            string             `json:"ApiKey"`
	ClientID          string             `json:"ClientId"`
	MessageParameters []messageParameter `json:"MessageParameters"`
}

type messageParameter struct {
	Number string `json:"Number"`
	Text   string `json:"Text"`
}

type bulkResponse struct {
	Recipients []recipientResult `json:"recipients"`
}

type recipientResult struct {
	Number  string `json:"Number"`
	Code    string `json:"Code"`
	Message string `json:"Message"`
}
