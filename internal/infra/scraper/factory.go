package scraper

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Renderer kinds accepted by NewRenderer.
const (
	RendererBrowser = "browser"
	RendererHTTP    = "http"
)

// FactoryConfig selects and configures the renderer behind a PageFetcher.
type FactoryConfig struct {
	Renderer         string        // "browser" (default) or "http"
	BrowserRemoteURL string        // optional DevTools URL of an external Chrome
	WaitTimeout      time.Duration // bounded wait for the listing
	HTTPTimeout      time.Duration // per-request timeout of the http renderer
}

// NewRenderer builds the renderer named by cfg.Renderer.
func NewRenderer(cfg FactoryConfig, logger *slog.Logger) (Renderer, error) {
	switch cfg.Renderer {
	case RendererBrowser, "":
		return NewBrowserRenderer(BrowserConfig{
			RemoteURL:   cfg.BrowserRemoteURL,
			WaitTimeout: cfg.WaitTimeout,
			Logger:      logger,
		}), nil
	case RendererHTTP:
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return NewHTTPRenderer(&http.Client{Timeout: timeout}), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q (want %q or %q)", cfg.Renderer, RendererBrowser, RendererHTTP)
	}
}

// NewPageFetcherFromConfig builds a PageFetcher with the configured renderer.
func NewPageFetcherFromConfig(cfg FactoryConfig, logger *slog.Logger) (*PageFetcher, error) {
	r, err := NewRenderer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewPageFetcher(r, logger), nil
}
