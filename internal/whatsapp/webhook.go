package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TypeText     = "text"
	TypeDocument = "document"

	defaultDisplayName = "Candidato"
	signaturePrefix    = "sha256="
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string          `json:"messaging_product"`
	Contacts         []Contact       `json:"contacts"`
	Messages         []RawMessage    `json:"messages"`
	Statuses         []StatusPayload `json:"statuses"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type RawMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Document *Document `json:"document,omitempty"`
}

type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
}

type StatusPayload struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// InboundMessage is a candidate message flattened out of the webhook envelope.
// Phone is already normalized.
type InboundMessage struct {
	ID          string
	Phone       string
	DisplayName string
	Timestamp   time.Time
	Type        string
	Text        string
	Document    *Document
}

// Status is a delivery receipt for a message we sent.
type Status struct {
	MessageID   string
	Status      string
	RecipientID string
	Timestamp   time.Time
}

type Events struct {
	Messages []InboundMessage
	Statuses []Status
}

func (e Events) Empty() bool {
	return len(e.Messages) == 0 && len(e.Statuses) == 0
}

// ParseWebhook flattens every entry and change of a webhook body. Messages
// without a sender are skipped.
func ParseWebhook(body []byte, now time.Time) (Events, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Events{}, fmt.Errorf("decode webhook payload: %w", err)
	}

	var events Events
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			v := change.Value

			for _, s := range v.Statuses {
				events.Statuses = append(events.Statuses, Status{
					MessageID:   s.ID,
					Status:      s.Status,
					RecipientID: s.RecipientID,
					Timestamp:   parseTimestamp(s.Timestamp, now),
				})
			}

			for _, m := range v.Messages {
				phone := NormalizePhone(m.From)
				if phone == "" {
					continue
				}

				msg := InboundMessage{
					ID:          m.ID,
					Phone:       phone,
					DisplayName: displayName(v.Contacts, m.From),
					Timestamp:   parseTimestamp(m.Timestamp, now),
					Type:        m.Type,
					Document:    m.Document,
				}
				if m.Text != nil {
					msg.Text = m.Text.Body
				}

				events.Messages = append(events.Messages, msg)
			}
		}
	}

	return events, nil
}

func displayName(contacts []Contact, from string) string {
	for _, c := range contacts {
		if c.WaID == from && strings.TrimSpace(c.Profile.Name) != "" {
			return strings.TrimSpace(c.Profile.Name)
		}
	}
	if len(contacts) > 0 && strings.TrimSpace(contacts[0].Profile.Name) != "" {
		return strings.TrimSpace(contacts[0].Profile.Name)
	}
	return defaultDisplayName
}

// parseTimestamp reads unix seconds. Unparseable values fall back to now.
func parseTimestamp(raw string, now time.Time) time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || sec <= 0 {
		return now.UTC()
	}
	return time.Unix(sec, 0).UTC()
}

// VerifyChallenge implements the subscription handshake.
func VerifyChallenge(mode, token, challenge, expected string) (string, bool) {
	if mode != "subscribe" || expected == "" {
		return "", false
	}
	if !hmac.Equal([]byte(token), []byte(expected)) {
		return "", false
	}
	return challenge, true
}

// VerifySignature checks the X-Hub-Signature-256 header against the app secret.
func VerifySignature(secret string, body []byte, header string) error {
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrInvalidSignature
	}

	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}

	return nil
}
