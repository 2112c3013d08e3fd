package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"post-alert/internal/domain/entity"
	"post-alert/internal/observability/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "request_id"

// Circuit breaker constants. A tripped breaker only marks the recipient
// unhealthy; deliveries to it are still attempted.
const (
	circuitBreakerThreshold = 5                // Consecutive failures before a recipient is reported unhealthy
	circuitBreakerTimeout   = 5 * time.Minute  // How long a tripped recipient stays reported unhealthy
	notificationTimeout     = 30 * time.Second // Timeout for one delivery
	defaultMaxConcurrent    = 10
)

// Service fans out change alerts to recipients.
type Service interface {
	// Notify formats change once and delivers it to every recipient.
	// It blocks until all deliveries finish and returns one result per
	// recipient, in recipient order. It never fails as a whole.
	Notify(ctx context.Context, change entity.Change, recipients []entity.Recipient) []entity.DeliveryResult

	// GetChannelHealth returns the health status of all registered channels.
	GetChannelHealth() []ChannelHealthStatus

	// Shutdown cancels in-flight deliveries and waits for them to return,
	// or for ctx to expire.
	Shutdown(ctx context.Context) error
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name               string     // Channel name (e.g., "telegram", "discord")
	Enabled            bool       // Whether the channel is enabled
	CircuitBreakerOpen bool       // Whether any recipient of the channel keeps failing
	OpenRecipients     int        // Number of recipients currently reported unhealthy
	DisabledUntil      *time.Time // Latest breaker expiry across the channel's recipients
}

// service is the concrete implementation of Service interface.
type service struct {
	channels       []Channel                   // Registered channels, in registration order
	byName         map[string]Channel          // Lookup by recipient channel name
	maxConcurrent  int                         // Fan-out bound per change
	health         map[string]*recipientHealth // Breaker state keyed by recipient string
	healthMu       sync.Mutex                  // Protects health map
	wg             sync.WaitGroup              // Tracks in-flight Notify calls
	shutdownCtx    context.Context             // Canceled on Shutdown
	shutdownCancel context.CancelFunc
}

// recipientHealth tracks circuit breaker state for one recipient
type recipientHealth struct {
	channel             string
	consecutiveFailures int
	disabledUntil       time.Time
}

// NewService creates a notification service over channels. maxConcurrent
// bounds the concurrent deliveries of a single change (values < 1 use 10).
func NewService(channels []Channel, maxConcurrent int) Service {
	if maxConcurrent < 1 {
		maxConcurrent = defaultMaxConcurrent
	}
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	svc := &service{
		channels:       channels,
		byName:         make(map[string]Channel, len(channels)),
		maxConcurrent:  maxConcurrent,
		health:         make(map[string]*recipientHealth),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	enabled := 0
	for _, ch := range channels {
		svc.byName[ch.Name()] = ch
		if ch.IsEnabled() {
			enabled++
		}
	}
	SetChannelsEnabled(float64(enabled))

	return svc
}

// Notify implements Service.Notify.
func (s *service) Notify(ctx context.Context, change entity.Change, recipients []entity.Recipient) []entity.DeliveryResult {
	s.wg.Add(1)
	defer s.wg.Done()

	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		requestID = uuid.New().String()
	}
	logger := logging.FromContext(ctx)

	results := make([]entity.DeliveryResult, len(recipients))
	if len(recipients) == 0 {
		return results
	}

	text := FormatMessage(change)
	logger.Info("dispatching change notification",
		slog.String("request_id", requestID),
		slog.String("source_id", change.SourceID),
		slog.String("post_id", change.Record.ID),
		slog.String("kind", string(change.Kind)),
		slog.Int("recipients", len(recipients)))

	g := new(errgroup.Group)
	g.SetLimit(s.maxConcurrent)
	for i, r := range recipients {
		g.Go(func() error {
			results[i] = s.deliver(ctx, logger, requestID, r, text)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// deliver makes the single logical delivery attempt for one recipient.
func (s *service) deliver(ctx context.Context, logger *slog.Logger, requestID string, r entity.Recipient, text string) entity.DeliveryResult {
	result := entity.DeliveryResult{Recipient: r, Status: entity.DeliveryFailed}

	ch, ok := s.byName[r.Channel]
	if !ok {
		RecordDropped(r.Channel, "unknown_channel")
		result.Err = fmt.Errorf("%w: %s", ErrChannelNotFound, r.Channel)
		return result
	}
	if !ch.IsEnabled() {
		RecordDropped(ch.Name(), "disabled")
		result.Err = fmt.Errorf("%w: %s", ErrChannelDisabled, ch.Name())
		return result
	}

	key := r.String()

	IncrementActiveGoroutines()
	defer DecrementActiveGoroutines()

	sendCtx, cancel := context.WithTimeout(ctx, notificationTimeout)
	defer cancel()
	stop := context.AfterFunc(s.shutdownCtx, cancel)
	defer stop()
	sendCtx = context.WithValue(sendCtx, requestIDKey, requestID)

	RecordDispatch(ch.Name())
	start := time.Now()
	err := s.safeSend(sendCtx, logger, requestID, ch, r.ID, text)
	result.Duration = time.Since(start)

	s.recordOutcome(key, ch.Name(), err, logger, requestID)

	if err != nil {
		RecordFailure(ch.Name(), result.Duration)
		logger.Warn("notification failed",
			slog.String("request_id", requestID),
			slog.String("channel", ch.Name()),
			slog.String("recipient", logging.MaskSecret(r.ID)),
			slog.Duration("send_duration", result.Duration),
			slog.String("error", logging.SanitizeError(err)))
		result.Err = err
		return result
	}

	RecordSuccess(ch.Name(), result.Duration)
	logger.Info("notification sent",
		slog.String("request_id", requestID),
		slog.String("channel", ch.Name()),
		slog.String("recipient", logging.MaskSecret(r.ID)),
		slog.Duration("send_duration", result.Duration))
	result.Status = entity.DeliverySent
	return result
}

// safeSend converts a panicking channel into an ErrChannelPanic failure.
func (s *service) safeSend(ctx context.Context, logger *slog.Logger, requestID string, ch Channel, recipientID, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in notification channel",
				slog.String("request_id", requestID),
				slog.String("channel", ch.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrChannelPanic, r)
		}
	}()
	return ch.Send(ctx, recipientID, text)
}

func (s *service) recordOutcome(key, channel string, err error, logger *slog.Logger, requestID string) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	h, ok := s.health[key]
	if !ok {
		h = &recipientHealth{channel: channel}
		s.health[key] = h
	}
	if err == nil {
		h.consecutiveFailures = 0
		h.disabledUntil = time.Time{}
		return
	}

	h.consecutiveFailures++
	if h.consecutiveFailures >= circuitBreakerThreshold {
		h.disabledUntil = time.Now().Add(circuitBreakerTimeout)
		h.consecutiveFailures = 0
		logger.Error("circuit breaker opened for recipient",
			slog.String("request_id", requestID),
			slog.String("channel", channel),
			slog.Int("threshold", circuitBreakerThreshold))
		RecordCircuitBreakerOpen(channel)
	}
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	now := time.Now()
	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		status := ChannelHealthStatus{Name: ch.Name(), Enabled: ch.IsEnabled()}
		for _, h := range s.health {
			if h.channel != ch.Name() || !now.Before(h.disabledUntil) {
				continue
			}
			status.CircuitBreakerOpen = true
			status.OpenRecipients++
			if status.DisabledUntil == nil || h.disabledUntil.After(*status.DisabledUntil) {
				until := h.disabledUntil
				status.DisabledUntil = &until
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Shutdown implements Service.Shutdown.
func (s *service) Shutdown(ctx context.Context) error {
	slog.Info("shutting down notification service")

	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("notification service shutdown complete")
		return nil
	case <-ctx.Done():
		slog.Warn("notification service shutdown timeout")
		return ctx.Err()
	}
}

// CountResults tallies sent and failed deliveries.
func CountResults(results []entity.DeliveryResult) (sent, failed int) {
	for _, r := range results {
		if r.Status == entity.DeliverySent {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}
