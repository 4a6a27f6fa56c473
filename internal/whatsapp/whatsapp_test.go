package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"551187654321":       "5511987654321",
		"+55 (11) 8765-4321": "5511987654321",
		"5511987654321":      "5511987654321",
		"14155550100":        "14155550100",
		"":                   "",
	}

	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{APIURL: srv.URL, PhoneNumberID: "123"}, "token", zap.NewNop())
}

func TestSendText(t *testing.T) {
	t.Parallel()

	var got sendRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v22.0/123/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.out"}]}`)
	})

	id, err := client.SendText(context.Background(), "551187654321", "Olá!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "wamid.out" {
		t.Fatalf("expected provider id, got %q", id)
	}
	if got.To != "5511987654321" || got.Type != "text" || got.Text.Body != "Olá!" || got.MessagingProduct != "whatsapp" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestSendTextAPIError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`)
	})

	_, err := client.SendText(context.Background(), "5511987654321", "oi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != 190 {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestSendTextRequiresPhoneNumberID(t *testing.T) {
	t.Parallel()

	client := New(Config{}, "token", nil)
	if _, err := client.SendText(context.Background(), "5511987654321", "oi"); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestDownloadMedia(t *testing.T) {
	t.Parallel()

	var srvURL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer token on %s", r.URL.Path)
		}
		switch r.URL.Path {
		case "/v22.0/media-1":
			_, _ = io.WriteString(w, `{"url":"`+srvURL+`/files/media-1","mime_type":"text/csv"}`)
		case "/files/media-1":
			_, _ = io.WriteString(w, "nome,cargo\nAna,Dev\n")
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = client.APIURL

	media, err := client.DownloadMedia(context.Background(), "media-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if media.MimeType != "text/csv" || !strings.Contains(string(media.Data), "Ana,Dev") {
		t.Fatalf("unexpected media: %+v", media)
	}
}

func TestDownloadMediaTooLarge(t *testing.T) {
	t.Parallel()

	var srvURL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v22.0/big":
			_, _ = io.WriteString(w, `{"url":"`+srvURL+`/files/big"}`)
		default:
			_, _ = io.WriteString(w, strings.Repeat("x", 64))
		}
	})
	srvURL = client.APIURL
	client.maxMediaBytes = 16

	if _, err := client.DownloadMedia(context.Background(), "big"); err == nil {
		t.Fatalf("expected size error")
	}
}

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "1",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "551187654321", "profile": {"name": "Ana"}}],
        "messages": [
          {"id": "wamid.1", "from": "551187654321", "timestamp": "1700000000", "type": "text", "text": {"body": "Olá"}},
          {"id": "wamid.2", "from": "551187654321", "timestamp": "1700000001", "type": "document",
           "document": {"id": "media-1", "filename": "cv.pdf", "mime_type": "application/pdf"}}
        ]
      }
    }]
  }]
}`

func TestParseWebhookMessages(t *testing.T) {
	t.Parallel()

	events, err := ParseWebhook([]byte(samplePayload), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.Messages) != 2 || len(events.Statuses) != 0 {
		t.Fatalf("unexpected events: %+v", events)
	}

	text := events.Messages[0]
	if text.Phone != "5511987654321" || text.DisplayName != "Ana" || text.Text != "Olá" || text.Type != TypeText {
		t.Fatalf("unexpected text message: %+v", text)
	}
	if !text.Timestamp.Equal(time.Unix(1700000000, 0)) || text.Timestamp.Location() != time.UTC {
		t.Fatalf("unexpected timestamp: %v", text.Timestamp)
	}

	doc := events.Messages[1]
	if doc.Type != TypeDocument || doc.Document == nil || doc.Document.MimeType != "application/pdf" {
		t.Fatalf("unexpected document message: %+v", doc)
	}
}

func TestParseWebhookStatusesAndDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	body := `{"entry":[{"changes":[{"value":{
		"statuses":[{"id":"wamid.out","status":"delivered","timestamp":"1700000000","recipient_id":"5511987654321"}],
		"messages":[{"id":"wamid.3","from":"5511987654321","timestamp":"bogus","type":"text","text":{"body":"oi"}}]
	}}]}]}`

	events, err := ParseWebhook([]byte(body), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.Statuses) != 1 || events.Statuses[0].Status != "delivered" {
		t.Fatalf("unexpected statuses: %+v", events.Statuses)
	}
	msg := events.Messages[0]
	if msg.DisplayName != "Candidato" {
		t.Fatalf("expected default display name, got %q", msg.DisplayName)
	}
	if !msg.Timestamp.Equal(now) {
		t.Fatalf("expected fallback timestamp, got %v", msg.Timestamp)
	}

	if _, err := ParseWebhook([]byte("not json"), now); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestVerifyChallenge(t *testing.T) {
	t.Parallel()

	if got, ok := VerifyChallenge("subscribe", "secret", "42", "secret"); !ok || got != "42" {
		t.Fatalf("expected challenge echo, got %q %v", got, ok)
	}
	if _, ok := VerifyChallenge("subscribe", "wrong", "42", "secret"); ok {
		t.Fatalf("wrong token must fail")
	}
	if _, ok := VerifyChallenge("unsubscribe", "secret", "42", "secret"); ok {
		t.Fatalf("wrong mode must fail")
	}
	if _, ok := VerifyChallenge("subscribe", "", "42", ""); ok {
		t.Fatalf("empty configured token must fail")
	}
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"entry":[]}`)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if err := VerifySignature("app-secret", body, header); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := VerifySignature("other", body, header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	if err := VerifySignature("app-secret", body, "md5=abc"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature for bad prefix, got %v", err)
	}
}
