// Package retry re-runs page fetches and state mirror calls that failed for a
// transient reason, waiting with exponential back-off and jitter in between.
package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"post-alert/internal/domain/entity"
	"post-alert/internal/observability/logging"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"
)

// Config holds the configuration for retry logic.
type Config struct {
	// Op names the guarded operation in logs.
	Op string

	// MaxAttempts counts the first call too.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the wait between attempts, before jitter.
	MaxDelay time.Duration

	// Multiplier grows the wait after every failed attempt.
	Multiplier float64

	// JitterFraction is the share of the wait added as random jitter (0.0 to 1.0).
	JitterFraction float64
}

// PageFetchConfig returns configuration for blog listing page fetches.
// A run visits each source once, so retries stay short to keep the run bounded.
func PageFetchConfig() Config {
	return Config{
		Op:             "page_fetch",
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// MirrorConfig returns configuration for calls to the Postgres state mirror.
func MirrorConfig() Config {
	return Config{
		Op:             "state_mirror",
		MaxAttempts:    3,
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       1 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// delay returns the wait after the given failed attempt (1-based).
func (c Config) delay(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
		if c.MaxDelay > 0 && d >= float64(c.MaxDelay) {
			d = float64(c.MaxDelay)
			break
		}
	}
	return addJitter(time.Duration(d), c.JitterFraction)
}

// WithBackoff calls fn until it succeeds, fails with an error IsRetryable
// rejects, or cfg.MaxAttempts is used up. A non-retryable error is returned
// unwrapped so callers can still match it.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	logger := logging.FromContext(ctx).With(slog.String("op", cfg.Op))
	attempts := max(cfg.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}

		retryable, reason := classify(lastErr)
		if !retryable {
			logger.Debug("error not retried",
				slog.Int("attempt", attempt),
				slog.String("reason", reason),
				slog.String("error", logging.SanitizeError(lastErr)))
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := cfg.delay(attempt)
		logger.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("reason", reason),
			slog.Duration("delay", wait),
			slog.String("error", logging.SanitizeError(lastErr)))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", attempts, lastErr)
}

// IsRetryable reports whether err is worth another attempt within the same run.
func IsRetryable(err error) bool {
	retryable, _ := classify(err)
	return retryable
}

// classify decides whether err is transient and names the reason for logs.
func classify(err error) (bool, string) {
	switch {
	case err == nil:
		return false, ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false, "context"
	case errors.Is(err, entity.ErrListingNotLoaded):
		return false, "listing_not_loaded"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false, "circuit_open"
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return retryableStatus(httpErr.StatusCode), fmt.Sprintf("http_%d", httpErr.StatusCode)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryablePgCode(pgErr.Code), "pg_" + pgErr.Code
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true, "pg_connect"
	}
	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) {
		return true, "pg_connection"
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true, "network"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true, "network_timeout"
	}

	return false, "permanent"
}

func retryableStatus(code int) bool {
	return code >= 500 && code < 600 ||
		code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout
}

// retryablePgCode accepts SQLSTATEs that a fresh attempt can get past:
// connection exceptions (class 08), serialization failures and deadlocks,
// server shutdown or startup, and connection exhaustion.
func retryablePgCode(code string) bool {
	if strings.HasPrefix(code, "08") {
		return true
	}
	switch code {
	case "40001", "40P01", "57P01", "57P02", "57P03", "53300":
		return true
	}
	return false
}

// HTTPError is a listing page response with a non-200 status.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// addJitter adds up to jitterFraction of duration as random jitter.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- jitter does not need cryptographic randomness.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
