// Package notify delivers change alerts to recipients across notification channels.
// One change is formatted once and fanned out to every recipient concurrently;
// a failing recipient never suppresses delivery to another.
package notify

import (
	"context"

	"post-alert/internal/infra/notifier"
)

// Channel is a notification delivery channel (telegram, discord, slack, log).
// Implementations handle their own rate limiting and transport retries.
//
// Retry Policy Contract:
//   - Transient failures (5xx, network errors): retried inside the transport
//   - Rate limits (429): wait for retry_after, then retry
//   - Client errors (4xx except 429): no retry
//   - Context timeout: no retry
//
// All methods must be safe for concurrent use.
type Channel interface {
	// Name is the channel identifier used in recipient strings ("telegram:123").
	Name() string

	// IsEnabled reports whether the channel is enabled via configuration.
	IsEnabled() bool

	// Send delivers text to one recipient of this channel.
	Send(ctx context.Context, recipientID, text string) error
}

// TransportChannel adapts a notifier.Notifier to the Channel interface.
type TransportChannel struct {
	name     string
	enabled  bool
	notifier notifier.Notifier
}

// NewTransportChannel wraps n under name. A nil notifier disables the channel.
func NewTransportChannel(name string, enabled bool, n notifier.Notifier) *TransportChannel {
	return &TransportChannel{
		name:     name,
		enabled:  enabled && n != nil,
		notifier: n,
	}
}

// Name implements Channel.
func (c *TransportChannel) Name() string {
	return c.name
}

// IsEnabled implements Channel.
func (c *TransportChannel) IsEnabled() bool {
	return c.enabled
}

// Send implements Channel.
func (c *TransportChannel) Send(ctx context.Context, recipientID, text string) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	return c.notifier.SendText(ctx, recipientID, text)
}

// NewDiscordChannel creates the "discord" channel. Recipients are "default"
// (the configured webhook) or a full Discord webhook URL.
func NewDiscordChannel(config notifier.DiscordConfig) *TransportChannel {
	if !config.Enabled {
		return NewTransportChannel("discord", false, nil)
	}
	return NewTransportChannel("discord", true, notifier.NewDiscordNotifier(config))
}

// NewSlackChannel creates the "slack" channel.
func NewSlackChannel(config notifier.SlackConfig) *TransportChannel {
	if !config.Enabled {
		return NewTransportChannel("slack", false, nil)
	}
	return NewTransportChannel("slack", true, notifier.NewSlackNotifier(config))
}

// NewTelegramChannel creates the "telegram" channel. Recipients are numeric chat ids.
func NewTelegramChannel(config notifier.TelegramConfig) (*TransportChannel, error) {
	if !config.Enabled {
		return NewTransportChannel("telegram", false, nil), nil
	}
	n, err := notifier.NewTelegramNotifier(config)
	if err != nil {
		return nil, err
	}
	return NewTransportChannel("telegram", true, n), nil
}

// NewLogChannel creates the "log" channel, which writes alerts to the structured log.
func NewLogChannel(n *notifier.LogNotifier) *TransportChannel {
	return NewTransportChannel("log", true, n)
}
