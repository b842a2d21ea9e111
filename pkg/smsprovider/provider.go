package smsprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NDERI007/simflow/pkg/httpclient"
)

// Provider sends one batch and returns exactly one Result per input phone.
// It never fails partially: transport faults, timeouts, and malformed
// responses are synthesized into per-phone failed results so callers always
// get a total mapping from phones to outcomes.
type Provider interface {
	SendBatch(ctx context.Context, phones []string, text string, senderID string) []Result
}

type Config struct {
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	ClientID string        `mapstructure:"client_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SMSProvider struct {
	cfg    Config
	client httpclient.HTTPClient
}

func NewSMSProvider(cfg Config, client httpclient.HTTPClient) Provider {
	return &SMSProvider{cfg: cfg, client: client}
}

func (s *SMSProvider) SendBatch(ctx context.Context, phones []string, text string, senderID string) []Result {
	request := bulkRequest{
		SenderID:          senderID,
		APIKey:            s.cfg.APIKey,
		ClientID:          s.cfg.ClientID,
		MessageParameters: make([]messageParameter, 0, len(phones)),
	}

	for _, phone := range phones {
		request.MessageParameters = append(request.MessageParameters,
			messageParameter{Number: phone, Text: text})
	}

	body, err := json.Marshal(request)
	if err != nil {
		return failAll(phones, CodeInternalError, err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.client.Post(callCtx, s.cfg.URL, bytes.NewReader(body),
		map[string]string{"Content-Type": "application/json"})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return failAll(phones, CodeTimeout, "gateway call timed out")
		}

		return failAll(phones, CodeNetworkError, err.Error())
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			return failAll(phones, CodeNetworkError, "gateway returned "+resp.Status)
		}

		return failAll(phones, CodeBadResponse, "gateway returned "+resp.Status)
	}

	var parsed bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return failAll(phones, CodeBadResponse, "unparseable gateway response")
	}

	return s.mapResults(phones, parsed)
}

// mapResults joins the provider's per-recipient outcomes back onto the
// requested phones. Phones the provider did not answer for are failed with
// BAD_RESPONSE so the result set stays total.
func (s *SMSProvider) mapResults(phones []string, parsed bulkResponse) []Result {
	byNumber := make(map[string]recipientResult, len(parsed.Recipients))
	for _, r := range parsed.Recipients {
		byNumber[r.Number] = r
	}

	results := make([]Result, 0, len(phones))
	for _, phone := range phones {
		raw, ok := byNumber[phone]
		if !ok {
			results = append(results, Result{
				Phone:   phone,
				Status:  StatusFailed,
				Code:    CodeBadResponse,
				Message: "recipient missing from gateway response",
				Type:    TypeUnknown,
			})
			continue
		}

		if raw.Code == CodeSuccess {
			results = append(results, Result{
				Phone:   phone,
				Status:  StatusSuccess,
				Code:    raw.Code,
				Message: raw.Message,
			})
			continue
		}

		results = append(results, Result{
			Phone:   phone,
			Status:  StatusFailed,
			Code:    raw.Code,
			Message: raw.Message,
			Type:    Classify(raw.Code),
		})
	}

	return results
}

func failAll(phones []string, code, message string) []Result {
	results := make([]Result, 0, len(phones))
	for _, phone := range phones {
		results = append(results, Result{
			Phone:   phone,
			Status:  StatusFailed,
			Code:    code,
			Message: message,
			Type:    Classify(code),
		})
	}

	return results
}
