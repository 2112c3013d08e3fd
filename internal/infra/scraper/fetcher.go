package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"post-alert/internal/domain/entity"
	"post-alert/internal/resilience/circuitbreaker"
	"post-alert/internal/resilience/retry"
	"post-alert/internal/usecase/fetch"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
)

// PageFetcher fetches one source's listing and extracts its raw post records.
// Each source gets its own circuit breaker, so one broken blog never blocks
// the others.
type PageFetcher struct {
	renderer    Renderer
	retryConfig retry.Config
	logger      *slog.Logger

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewPageFetcher creates a PageFetcher rendering pages with renderer.
func NewPageFetcher(renderer Renderer, logger *slog.Logger) *PageFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageFetcher{
		renderer:    renderer,
		retryConfig: retry.PageFetchConfig(),
		logger:      logger,
		breakers:    make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// WithRetryConfig overrides the retry policy. It is used by tests to keep
// back-off short.
func (f *PageFetcher) WithRetryConfig(cfg retry.Config) *PageFetcher {
	f.retryConfig = cfg
	return f
}

// Fetch implements fetch.PageFetcher. It returns nil, nil when the listing
// rendered with zero posts; every failure wraps fetch.ErrFeedFetchFailed.
func (f *PageFetcher) Fetch(ctx context.Context, source entity.Source) ([]entity.RawRecord, error) {
	records, err := f.fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %w", fetch.ErrFeedFetchFailed, source.ID, err)
	}
	return records, nil
}

func (f *PageFetcher) fetch(ctx context.Context, source entity.Source) ([]entity.RawRecord, error) {
	strategy, err := NewStrategy(source.Strategy)
	if err != nil {
		return nil, err
	}

	// Step 1: Validate URL (SSRF prevention)
	if err := validateURL(source.URL); err != nil {
		return nil, fmt.Errorf("URL validation failed: %w", err)
	}

	cb := f.breaker(source.ID)
	var records []entity.RawRecord

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := cb.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, source, strategy)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				f.logger.Warn("page fetch circuit breaker open, request rejected",
					slog.String("source_id", source.ID),
					slog.String("state", cb.State().String()))
			}
			return err
		}

		records = cbResult.([]entity.RawRecord)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return records, nil
}

// doFetch performs the actual scraping without retry or circuit breaker.
func (f *PageFetcher) doFetch(ctx context.Context, source entity.Source, strategy Strategy) ([]entity.RawRecord, error) {
	wait := waitCondition(strategy)
	html, err := f.renderer.Render(ctx, source.URL, wait)
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	if doc.Find(wait.Ready).Length() == 0 && doc.Find(wait.Empty).Length() == 0 {
		return nil, ErrListingNotLoaded
	}

	records := strategy.Extract(doc)
	f.logger.Debug("listing extracted",
		slog.String("source_id", source.ID),
		slog.String("strategy", string(strategy.Kind())),
		slog.Int("records", len(records)))

	if len(records) == 0 {
		return nil, nil
	}
	return records, nil
}

func (f *PageFetcher) breaker(sourceID string) *circuitbreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	cb, ok := f.breakers[sourceID]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.PageFetchConfig(sourceID))
		f.breakers[sourceID] = cb
	}
	return cb
}

// Close releases the renderer.
func (f *PageFetcher) Close() error {
	return f.renderer.Close()
}
