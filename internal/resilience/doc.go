// Package resilience provides fault tolerance patterns for the worker.
// It includes circuit breakers and retry logic so that one unreachable blog or
// a flaky state mirror degrades a run instead of failing it.
//
// The package supports:
//   - Circuit breakers for page fetches and the remote state mirror
//   - Retry logic with exponential backoff and jitter
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.PageFetchConfig(src.ID))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return render(ctx, url)
//	})
//
//	err := retry.WithBackoff(ctx, retry.PageFetchConfig(), func() error {
//	    return performOperation()
//	})
package resilience
