package preference

import (
	"context"
	"sync"
	"time"

	"github.com/civicflow/notifier/pkg/template"
)

// Limiter enforces frequency caps and per-channel daily caps. Implementations
// must make AllowRule an atomic check-and-mark so two concurrent events for
// the same (recipient, rule) cannot both pass the frequency gate.
type Limiter interface {
	// AllowRule reports whether a notification for the (recipient, rule)
	// pair may be created, and marks the pair for the given window when it
	// may. A zero window always allows without marking.
	AllowRule(ctx context.Context, userID, ruleID string, window time.Duration) (bool, error)

	// AllowDaily counts a send on the user's channel for the current day
	// and reports whether the count stays within cap. A cap of zero or
	// less always allows without counting.
	AllowDaily(ctx context.Context, userID string, ch template.Channel, cap int) (bool, error)
}

// MemoryLimiter implements Limiter in memory for testing and single-process
// deployments.
type MemoryLimiter struct {
	mu        sync.Mutex
	ruleMarks map[string]time.Time // userID|ruleID -> expiry
	daily     map[string]int       // userID|channel|date -> count
}

// NewMemoryLimiter creates an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		ruleMarks: make(map[string]time.Time),
		daily:     make(map[string]int),
	}
}

// AllowRule implements Limiter.
func (ml *MemoryLimiter) AllowRule(ctx context.Context, userID, ruleID string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	key := userID + "|" + ruleID
	now := time.Now()
	if expiry, ok := ml.ruleMarks[key]; ok && expiry.After(now) {
		return false, nil
	}
	ml.ruleMarks[key] = now.Add(window)
	return true, nil
}

// AllowDaily implements Limiter.
func (ml *MemoryLimiter) AllowDaily(ctx context.Context, userID string, ch template.Channel, cap int) (bool, error) {
	if cap <= 0 {
		return true, nil
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	key := userID + "|" + string(ch) + "|" + time.Now().UTC().Format(time.DateOnly)
	if ml.daily[key] >= cap {
		return false, nil
	}
	ml.daily[key]++
	return true, nil
}
