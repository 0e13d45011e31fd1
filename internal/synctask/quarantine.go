package synctask

import (
	"sync"
	"time"
)

// maxConsecutiveFailures is the number of consecutive failures on a
// node before it is quarantined.
const maxConsecutiveFailures = 3

// defaultQuarantineDuration is a reasonable starting cool-down,
// exposed as a policy knob (Quarantine.Duration) rather than a
// constant, so cmd/bajoo-syncd can override it from syncconfig.
const defaultQuarantineDuration = 24 * time.Hour

// Quarantine tracks consecutive per-node task failures and, once the
// threshold is crossed, the node's cool-down window during which the
// scheduler should not revisit it.
type Quarantine struct {
	Duration time.Duration

	mu       sync.Mutex
	failures map[string]int
	until    map[string]time.Time
	now      func() time.Time
}

// NewQuarantine returns a tracker using defaultQuarantineDuration.
func NewQuarantine() *Quarantine {
	return &Quarantine{
		Duration: defaultQuarantineDuration,
		failures: make(map[string]int),
		until:    make(map[string]time.Time),
		now:      time.Now,
	}
}

// RecordFailure notes one more failure for path, returning true once
// it crosses the threshold and the node becomes quarantined.
func (q *Quarantine) RecordFailure(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failures[path]++
	if q.failures[path] >= maxConsecutiveFailures {
		q.until[path] = q.now().Add(q.Duration)
		return true
	}
	return false
}

// RecordSuccess clears path's failure count and any active cool-down.
// Apart from this call, a quarantine ends only when its cool-down
// elapses; a new event for the path does not lift it.
func (q *Quarantine) RecordSuccess(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.failures, path)
	delete(q.until, path)
}

// IsQuarantined reports whether path is currently inside its
// cool-down window.
func (q *Quarantine) IsQuarantined(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	until, ok := q.until[path]
	if !ok {
		return false
	}
	if q.now().After(until) {
		delete(q.until, path)
		delete(q.failures, path)
		return false
	}
	return true
}
