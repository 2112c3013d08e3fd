// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the worker.
//
// Key features:
//   - JSON and text output formats
//   - Run ID propagation
//   - Context-aware logging
//   - Configurable log levels
//   - Secret masking for tokens and webhook URLs
//
// Example usage:
//
//	func main() {
//	    logger := logging.NewLogger()
//	    slog.SetDefault(logger)
//	}
//
//	func run(ctx context.Context) {
//	    ctx = logging.WithRunID(ctx, uuid.NewString())
//	    logging.FromContext(ctx).Info("run started")
//	}
package logging
