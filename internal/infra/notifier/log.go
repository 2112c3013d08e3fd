package notifier

import (
	"context"
	"log/slog"
)

// LogNotifier writes alert text to the structured log instead of a remote API.
// It backs the "log" channel used for local runs and smoke tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendText logs the message and never fails.
func (n *LogNotifier) SendText(ctx context.Context, recipientID, text string) error {
	n.logger.InfoContext(ctx, "alert",
		slog.String("recipient", recipientID),
		slog.String("text", text))
	return nil
}
