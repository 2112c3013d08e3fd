// Package scraper fetches blog listing pages and extracts raw post records.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"post-alert/internal/resilience/retry"
)

const (
	maxBodySize = 10 * 1024 * 1024 // 10MB

	userAgent = "Mozilla/5.0 (compatible; PostAlertBot/1.0)"
)

// WaitCondition tells a script-running renderer when a listing is complete.
type WaitCondition struct {
	// Ready matches once at least one post has rendered.
	Ready string

	// Empty matches the list container. It is only consulted after the wait
	// for Ready times out, to tell an empty listing from one that never loaded.
	Empty string
}

// Renderer turns a listing URL into the HTML of the rendered page.
// Renderers that execute scripts wait according to wait.
type Renderer interface {
	Render(ctx context.Context, pageURL string, wait WaitCondition) (string, error)
	Close() error
}

// HTTPRenderer fetches pages with a plain GET. It does not run scripts, so it
// only suits listings rendered server side.
type HTTPRenderer struct {
	client *http.Client
}

// NewHTTPRenderer creates an HTTPRenderer with the given HTTP client.
func NewHTTPRenderer(client *http.Client) *HTTPRenderer {
	return &HTTPRenderer{client: client}
}

// Render implements Renderer.
func (r *HTTPRenderer) Render(ctx context.Context, pageURL string, _ WaitCondition) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	// Limit body size to prevent memory exhaustion
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// Close implements Renderer.
func (r *HTTPRenderer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// validateURL checks if a URL is safe to fetch (SSRF prevention).
// For testing purposes, URLs with port 127.0.0.1:xxxxx (httptest servers) are allowed.
func validateURL(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	// Only allow http/https
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s (only http/https allowed)", u.Scheme)
	}

	// httptest servers use the ephemeral port range (32768-65535)
	if u.Hostname() == "127.0.0.1" && u.Port() != "" {
		portNum := 0
		if _, err := fmt.Sscanf(u.Port(), "%d", &portNum); err == nil {
			if portNum >= 32768 && portNum <= 65535 {
				return nil
			}
		}
	}

	if strings.TrimSpace(u.Hostname()) == "" {
		return fmt.Errorf("missing host")
	}

	ips, err := net.LookupIP(u.Hostname())
	if err != nil {
		return fmt.Errorf("DNS lookup failed: %w", err)
	}

	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return fmt.Errorf("private IP address detected: %s (SSRF prevention)", ip)
		}
	}

	return nil
}
