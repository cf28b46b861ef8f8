package extract

import "time"

// Retry configuration: transient failures are retried with exponential
// backoff before being surfaced as a stage failure.
const (
	maxAttempts = 3
	baseBackoff = 1 * time.Second
	maxBackoff  = 10 * time.Second
)

// backoffFor returns the delay before the given retry attempt
// (attempt >= 1), doubling from baseBackoff and capped at maxBackoff.
func backoffFor(attempt int) time.Duration {
	d := baseBackoff * time.Duration(1<<(attempt-1))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	for e := err; e != nil; {
		if _, ok := e.(*retryableError); ok {
			return true
		}
		if unwrapper, ok := e.(interface{ Unwrap() error }); ok {
			e = unwrapper.Unwrap()
		} else {
			break
		}
	}
	return false
}
