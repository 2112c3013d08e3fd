package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled indicates a recipient on a channel that is not enabled.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrChannelNotFound indicates a recipient naming a channel that is not registered.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrChannelPanic indicates that a channel panicked while sending.
	// The panic is recovered and reported as a failed delivery.
	ErrChannelPanic = errors.New("channel panicked during send")
)
