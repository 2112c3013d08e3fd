package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"post-alert/internal/observability/logging"
)

// ErrInvalidRecipient indicates a recipient id the transport cannot address.
var ErrInvalidRecipient = errors.New("invalid recipient")

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "request_id"

// RateLimitError represents a 429 rate limit error from a messaging API.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string // Optional custom message
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx client error from a messaging API.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx server error from a messaging API.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// is429Error checks if the error is a rate limit error and extracts retry_after.
func is429Error(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr, true
	}
	return nil, false
}

// isRetryableError checks if the error is worth retrying (5xx server errors, network errors).
// Client errors (4xx) are not retryable except for rate limits (429).
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrInvalidRecipient) {
		return false
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return true
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return false
	}

	// Rate limit errors are handled separately
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return false
	}

	// Network errors and unclassified API errors are retryable
	return true
}

// retryPolicy bounds the attempts a transport makes for one message.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
}

// sendWithRetry runs send until it succeeds, fails permanently, or attempts run out.
// 429 responses wait for the advertised retry_after; retryable errors back off linearly.
func sendWithRetry(ctx context.Context, transport string, policy retryPolicy, send func() error) error {
	requestID, _ := ctx.Value(requestIDKey).(string)
	if policy.maxAttempts < 1 {
		policy.maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.maxAttempts; attempt++ {
		err := send()
		if err == nil {
			slog.Debug("message delivered",
				slog.String("request_id", requestID),
				slog.String("transport", transport),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if attempt == policy.maxAttempts {
			break
		}

		if rateLimitErr, ok := is429Error(err); ok {
			slog.Warn("rate limit hit, backing off",
				slog.String("request_id", requestID),
				slog.String("transport", transport),
				slog.Duration("retry_after", rateLimitErr.RetryAfter),
				slog.Int("attempt", attempt))

			select {
			case <-time.After(rateLimitErr.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !isRetryableError(err) {
			slog.Warn("delivery failed with non-retryable error",
				slog.String("request_id", requestID),
				slog.String("transport", transport),
				slog.String("error", logging.SanitizeError(err)),
				slog.Int("attempt", attempt))
			return err
		}

		delay := policy.baseDelay * time.Duration(attempt)
		slog.Warn("delivery failed, retrying",
			slog.String("request_id", requestID),
			slog.String("transport", transport),
			slog.String("error", logging.SanitizeError(err)),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("%s delivery failed after %d attempts: %w", transport, policy.maxAttempts, lastErr)
}

// splitText cuts s into chunks of at most limit runes, preferring to break
// on a newline in the last two thirds of a window.
func splitText(s string, limit int) []string {
	rs := []rune(s)
	if limit <= 0 || len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		if chunk != "" {
			out = append(out, chunk)
		}
		start = end
	}
	return out
}

// truncateText truncates text to maxLength runes, appending suffix when cut.
func truncateText(text string, maxLength int, suffix string) string {
	rs := []rune(text)
	if len(rs) <= maxLength {
		return text
	}

	truncateAt := maxLength - len([]rune(suffix))
	if truncateAt < 0 {
		truncateAt = 0
	}
	return string(rs[:truncateAt]) + suffix
}
