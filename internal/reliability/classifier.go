package reliability

import (
	"errors"
	"time"
)

// Retryable is implemented by error kinds that are worth another attempt.
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports whether any error in the chain declares itself
// retryable. Errors without an opinion are treated as fatal.
func IsRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
