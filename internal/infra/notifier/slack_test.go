package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSlack(url string) *SlackNotifier {
	return NewSlackNotifier(SlackConfig{
		Enabled:        true,
		WebhookURL:     url,
		Timeout:        5 * time.Second,
		RetryBaseDelay: 10 * time.Millisecond,
	})
}

func TestSlackNotifier_SendText(t *testing.T) {
	t.Run("TC-1: should post text payload", func(t *testing.T) {
		// Arrange
		var got SlackWebhookPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		// Act
		err := newTestSlack(server.URL).SendText(context.Background(), DefaultRecipient, "hello slack")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Text != "hello slack" {
			t.Errorf("expected text=%q, got %q", "hello slack", got.Text)
		}
	})

	t.Run("TC-2: should truncate long text", func(t *testing.T) {
		var got SlackWebhookPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		err := newTestSlack(server.URL).SendText(context.Background(), DefaultRecipient, strings.Repeat("a", 5000))

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got.Text) != slackTextLimit {
			t.Errorf("expected %d chars, got %d", slackTextLimit, len(got.Text))
		}
		if !strings.HasSuffix(got.Text, "...") {
			t.Error("expected truncation suffix")
		}
	})

	t.Run("TC-3: should give up after max attempts on 5xx", func(t *testing.T) {
		// Arrange
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		// Act
		err := newTestSlack(server.URL).SendText(context.Background(), DefaultRecipient, "x")

		// Assert
		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected ServerError, got %v", err)
		}
		if c := atomic.LoadInt32(&calls); c != 2 {
			t.Errorf("expected 2 calls, got %d", c)
		}
	})

	t.Run("TC-4: should not leak the webhook url on network errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL + "/services/T000/B000/secret-token"
		server.Close()

		err := newTestSlack(url).SendText(context.Background(), DefaultRecipient, "x")

		if err == nil {
			t.Fatal("expected error for closed server")
		}
		if strings.Contains(err.Error(), "secret-token") {
			t.Errorf("error leaks webhook secret: %v", err)
		}
	})
}

func TestValidateSlackWebhookURL(t *testing.T) {
	if err := ValidateSlackWebhookURL("https://hooks.slack.com/services/T/B/X"); err != nil {
		t.Errorf("expected valid url, got %v", err)
	}
	if err := ValidateSlackWebhookURL("https://hooks.slack.com/other/T/B/X"); !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("expected ErrInvalidRecipient, got %v", err)
	}
}
