package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the headless Chrome renderer.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string

	// WaitTimeout bounds the wait for the listing to appear (default 10s).
	WaitTimeout time.Duration

	// NavigateTimeout bounds navigation and page load (default 30s).
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

// BrowserRenderer renders listings in headless Chrome so that script-built
// listings are visible. The browser is started on first use and reused.
type BrowserRenderer struct {
	cfg BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowserRenderer creates a BrowserRenderer. No browser starts until Render.
func NewBrowserRenderer(cfg BrowserConfig) *BrowserRenderer {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &BrowserRenderer{cfg: cfg}
}

// Render implements Renderer. It navigates with stealth applied, waits for
// the listing (see waitForListing) and returns the page HTML.
func (r *BrowserRenderer) Render(ctx context.Context, pageURL string, wait WaitCondition) (string, error) {
	b, err := r.ensureBrowser()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}
	defer func() { _ = page.Close() }()

	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return "", fmt.Errorf("browser: navigate: %w", err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		r.cfg.Logger.Warn("browser: wait load timeout", slog.String("url", pageURL), slog.Any("error", err))
	}

	if err := waitForListing(ctx, rodListingPage{page}, wait, r.cfg.WaitTimeout); err != nil {
		return "", err
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return html, nil
}

// listingPage is the part of a browser tab the listing wait needs.
type listingPage interface {
	// WaitElement blocks until selector matches or timeout elapses.
	WaitElement(ctx context.Context, selector string, timeout time.Duration) error
	Has(ctx context.Context, selector string) (bool, error)
}

type rodListingPage struct {
	page *rod.Page
}

func (p rodListingPage) WaitElement(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	return err
}

func (p rodListingPage) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := p.page.Context(ctx).Has(selector)
	return has, err
}

// waitForListing waits up to timeout for a post to render. Only when that
// wait times out is the list container checked: present means the blog has
// no posts, absent means ErrListingNotLoaded.
func waitForListing(ctx context.Context, page listingPage, wait WaitCondition, timeout time.Duration) error {
	err := page.WaitElement(ctx, wait.Ready, timeout)
	if err == nil {
		return nil
	}
	if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return fmt.Errorf("browser: wait for listing: %w", err)
	}

	if wait.Empty != "" {
		empty, err := page.Has(ctx, wait.Empty)
		if err != nil {
			return fmt.Errorf("browser: check list body: %w", err)
		}
		if empty {
			return nil
		}
	}
	return fmt.Errorf("%w after %s", ErrListingNotLoaded, timeout)
}

func (r *BrowserRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("no-sandbox").
			Set("disable-dev-shm-usage").
			// Anti-detection flags.
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.cfg.Logger.Info("browser: launched local chrome")
	} else {
		r.cfg.Logger.Info("browser: connecting to remote chrome")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		r.cleanupLocked()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	r.browser = b
	return b, nil
}

// Close implements Renderer. It closes the browser and kills a locally launched Chrome.
func (r *BrowserRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cleanupLocked()
}

func (r *BrowserRenderer) cleanupLocked() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return err
}
