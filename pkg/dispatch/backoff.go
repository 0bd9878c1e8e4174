package dispatch

import "time"

// Retry backoff grows linearly with the failure count and is capped so a
// notification never waits longer than half an hour for its next attempt.
const (
	backoffStep = 5 * time.Minute
	backoffCap  = 30 * time.Minute
)

// Backoff returns the delay before the next attempt after retryCount
// failures: retryCount x 5 minutes, capped at 30 minutes.
func Backoff(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	d := time.Duration(retryCount) * backoffStep
	if d > backoffCap {
		d = backoffCap
	}
	return d
}
