package domain

import "time"

// RetryConfig parameterizes the backoff the main and retry worker pools
// apply to ApiClient.RequestInterval after a transient upstream failure.
type RetryConfig struct {
	// MaxRetries is preserved for handler plugins that want to cap their own
	// retry attempts; the dispatch core itself retries a transient failure
	// indefinitely via re-enqueue, per spec.md's exactly-once non-goal.
	MaxRetries int
	// InitialDelay is the backoff applied after the first transient failure.
	InitialDelay time.Duration
	// MaxDelay caps the backoff regardless of how many consecutive
	// transient failures a client has seen.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff growth factor.
	Multiplier float64
}

// DefaultRetryConfig returns the backoff shape used when a bridge
// configuration doesn't override it: start at 1s, double, cap at 60s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   0,
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
	}
}
