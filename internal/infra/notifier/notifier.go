// Package notifier delivers plain-text alert messages over concrete transports
// (Telegram, Discord and Slack webhooks, and the process log).
//
// Every transport applies its own rate limiting and retries transient failures
// (5xx, 429, network errors) inside a single SendText call.
package notifier

import (
	"context"
)

// Notifier sends a text message to one recipient of a transport.
type Notifier interface {
	// SendText delivers text to recipientID. The meaning of recipientID is
	// transport specific: a chat id for Telegram, "default" or a webhook URL
	// for webhook transports.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting
	//   - Retry transient failures and surface the last error
	//   - Never log secrets such as bot tokens or webhook URLs
	SendText(ctx context.Context, recipientID, text string) error
}
