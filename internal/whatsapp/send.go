package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// APIError is the error envelope returned by the Graph API.
type APIError struct {
	Status  int
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bad status: %d", e.Status)
	}
	return fmt.Sprintf("bad status: %d: %s (code %d)", e.Status, e.Message, e.Code)
}

// SendText delivers a plain text message and returns the provider message id,
// which may be empty when the API does not report one.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	if c.phoneNumberID == "" {
		return "", errors.New("whatsapp phone number id is not configured")
	}

	to = NormalizePhone(to)
	if to == "" {
		return "", errors.New("recipient phone is required")
	}
	if strings.TrimSpace(body) == "" {
		return "", errors.New("message body is required")
	}

	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{PreviewURL: false, Body: body},
	})
	if err != nil {
		return "", err
	}

	if err := c.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.phoneNumberID, "messages"), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req = c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.request(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp.StatusCode, data)
	}

	var parsed sendResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		c.logger.Warn("unexpected send response", zap.Error(err))
		return "", nil
	}

	if len(parsed.Messages) == 0 {
		return "", nil
	}
	return parsed.Messages[0].ID, nil
}

func decodeAPIError(status int, data []byte) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &APIError{Status: status}
	}
	envelope.Error.Status = status
	return &envelope.Error
}
