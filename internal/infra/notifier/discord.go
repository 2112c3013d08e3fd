package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// discordContentLimit is the maximum message content length in characters.
	discordContentLimit = 2000

	discordWebhookHost   = "discord.com"
	discordWebhookPrefix = "/api/webhooks/"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// Enabled indicates whether Discord notifications are enabled
	Enabled bool

	// WebhookURL is the webhook addressed by the "default" recipient
	WebhookURL string

	// Timeout is the HTTP request timeout for Discord API calls
	Timeout time.Duration

	// MaxAttempts bounds the attempts per message chunk (default 2)
	MaxAttempts int

	// RetryBaseDelay is the linear back-off unit between attempts (default 5s)
	RetryBaseDelay time.Duration
}

// DiscordNotifier posts alert text to Discord webhooks.
type DiscordNotifier struct {
	config      DiscordConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewDiscordNotifier creates a DiscordNotifier rate limited to 0.5 req/s with
// a burst of 3 (Discord allows 30 webhook requests per minute).
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 2
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = 5 * time.Second
	}
	return &DiscordNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(0.5, 3),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to a Discord webhook.
type DiscordWebhookPayload struct {
	Content string `json:"content"`
}

// DiscordErrorResponse represents the error response from Discord API.
type DiscordErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // In seconds
}

// ValidateDiscordWebhookURL accepts https://discord.com/api/webhooks/... URLs only.
func ValidateDiscordWebhookURL(rawURL string) error {
	return ValidateWebhookURL(rawURL, discordWebhookHost, discordWebhookPrefix)
}

// SendText implements Notifier. Text longer than Discord's content limit is
// sent as consecutive messages.
func (d *DiscordNotifier) SendText(ctx context.Context, recipientID, text string) error {
	webhookURL, err := resolveWebhookURL(recipientID, d.config.WebhookURL, ValidateDiscordWebhookURL)
	if err != nil {
		return err
	}

	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	chunks := splitText(text, discordContentLimit)
	slog.Debug("sending discord message",
		slog.String("request_id", requestID),
		slog.Int("chunks", len(chunks)))

	policy := retryPolicy{maxAttempts: d.config.MaxAttempts, baseDelay: d.config.RetryBaseDelay}
	for i, chunk := range chunks {
		if err := d.rateLimiter.Allow(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		payload := DiscordWebhookPayload{Content: chunk}
		err := sendWithRetry(ctx, "discord", policy, func() error {
			return postJSON(ctx, d.httpClient, webhookURL, "Discord", payload, discordRetryAfter)
		})
		if err != nil {
			return fmt.Errorf("discord chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// discordRetryAfter prefers retry_after from the JSON body, then the Retry-After header.
func discordRetryAfter(resp *http.Response, body []byte) time.Duration {
	var discordErr DiscordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.RetryAfter > 0 {
		return time.Duration(discordErr.RetryAfter * float64(time.Second))
	}
	return retryAfterHeader(resp, body)
}
