package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// slackTextLimit keeps messages well under Slack's 40k character cap.
	slackTextLimit = 3000

	slackWebhookHost   = "hooks.slack.com"
	slackWebhookPrefix = "/services/"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// Enabled indicates whether Slack notifications are enabled
	Enabled bool

	// WebhookURL is the Incoming Webhook addressed by the "default" recipient
	WebhookURL string

	// Timeout is the HTTP request timeout for Slack API calls
	Timeout time.Duration

	// MaxAttempts bounds the attempts per message (default 2)
	MaxAttempts int

	// RetryBaseDelay is the linear back-off unit between attempts (default 5s)
	RetryBaseDelay time.Duration
}

// SlackNotifier posts alert text to Slack Incoming Webhooks.
type SlackNotifier struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewSlackNotifier creates a SlackNotifier limited to 1 message per second.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 2
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = 5 * time.Second
	}
	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(1.0, 1),
	}
}

// SlackWebhookPayload represents the JSON payload sent to a Slack webhook.
type SlackWebhookPayload struct {
	Text string `json:"text"`
}

// ValidateSlackWebhookURL accepts https://hooks.slack.com/services/... URLs only.
func ValidateSlackWebhookURL(rawURL string) error {
	return ValidateWebhookURL(rawURL, slackWebhookHost, slackWebhookPrefix)
}

// SendText implements Notifier.
func (s *SlackNotifier) SendText(ctx context.Context, recipientID, text string) error {
	webhookURL, err := resolveWebhookURL(recipientID, s.config.WebhookURL, ValidateSlackWebhookURL)
	if err != nil {
		return err
	}

	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	slog.Debug("sending slack message", slog.String("request_id", requestID))

	if err := s.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	payload := SlackWebhookPayload{Text: truncateText(text, slackTextLimit, "...")}
	policy := retryPolicy{maxAttempts: s.config.MaxAttempts, baseDelay: s.config.RetryBaseDelay}
	return sendWithRetry(ctx, "slack", policy, func() error {
		return postJSON(ctx, s.httpClient, webhookURL, "Slack", payload, retryAfterHeader)
	})
}
