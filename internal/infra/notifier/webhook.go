package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultRecipient addresses the webhook configured for a transport.
const DefaultRecipient = "default"

// maxErrorBodyBytes caps how much of an error response is kept for messages.
const maxErrorBodyBytes = 1024

// ValidateWebhookURL checks that rawURL is an https URL on host under pathPrefix.
func ValidateWebhookURL(rawURL, host, pathPrefix string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: malformed webhook url", ErrInvalidRecipient)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%w: webhook url must use https", ErrInvalidRecipient)
	}
	if u.Host != host {
		return fmt.Errorf("%w: webhook host must be %s", ErrInvalidRecipient, host)
	}
	if !strings.HasPrefix(u.Path, pathPrefix) {
		return fmt.Errorf("%w: webhook path must start with %s", ErrInvalidRecipient, pathPrefix)
	}
	return nil
}

// resolveWebhookURL maps a recipient id onto the URL to post to.
// "default" (or empty) selects the configured URL; anything else must be a
// webhook URL accepted by validate.
func resolveWebhookURL(recipientID, configured string, validate func(string) error) (string, error) {
	if recipientID == "" || recipientID == DefaultRecipient {
		if configured == "" {
			return "", fmt.Errorf("%w: no default webhook configured", ErrInvalidRecipient)
		}
		return configured, nil
	}
	if err := validate(recipientID); err != nil {
		return "", err
	}
	return recipientID, nil
}

// postJSON posts payload and classifies the response into the typed errors
// understood by sendWithRetry. retryAfter extracts the 429 back-off.
func postJSON(ctx context.Context, client *http.Client, webhookURL, service string, payload any,
	retryAfter func(*http.Response, []byte) time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		// url.Error carries the webhook URL, which embeds the token
		return fmt.Errorf("execute %s webhook request: %w", service, unwrapURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    service + " rate limit exceeded",
			RetryAfter: retryAfter(resp, respBody),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error: %s", service, string(respBody)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error: %s", service, string(respBody)),
		}
	default:
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}
}

// retryAfterHeader reads the Retry-After header in seconds, defaulting to 5s.
func retryAfterHeader(resp *http.Response, _ []byte) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 5 * time.Second
}

func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
