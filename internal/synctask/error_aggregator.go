package synctask

import (
	"sync"
	"time"

	"github.com/nicolagi/bajoo-sync/internal/syncerr"
)

// ErrorAggregator accumulates per-file task failures into the
// bookkeeping needed for user-visible failure reporting: one
// notification per distinct container-level error kind per cool-down
// window, with per-file errors aggregated into a reported count
// rather than individually surfaced. No outbound notification is
// implemented here — that delivery mechanism is out of scope — but
// the counts and cool-down timestamps it would need are tracked so an
// external UI layer can poll Snapshot.
type ErrorAggregator struct {
	mu         sync.Mutex
	cooldown   time.Duration
	fileCounts map[string]int
	kindSince  map[syncerr.Kind]time.Time
	now        func() time.Time
}

// NewErrorAggregator returns an aggregator that considers a given
// error kind "reported" for cooldown after it, until cooldown has
// elapsed.
func NewErrorAggregator(cooldown time.Duration) *ErrorAggregator {
	return &ErrorAggregator{
		cooldown:   cooldown,
		fileCounts: make(map[string]int),
		kindSince:  make(map[syncerr.Kind]time.Time),
		now:        time.Now,
	}
}

// Record notes a failure on path, classifying err via syncerr.Classify.
// It returns true the first time a given kind is recorded, or again
// once the cooldown window for that kind has elapsed — i.e. whether
// the caller should surface a fresh notification for this kind.
func (a *ErrorAggregator) Record(path string, err error) bool {
	kind := syncerr.Classify(err)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fileCounts[path]++
	now := a.now()
	last, seen := a.kindSince[kind]
	if !seen || now.Sub(last) >= a.cooldown {
		a.kindSince[kind] = now
		return true
	}
	return false
}

// Snapshot is a point-in-time, read-only view of the aggregator's
// bookkeeping.
type Snapshot struct {
	FileErrorCounts map[string]int
	KindLastSeen    map[syncerr.Kind]time.Time
}

// Snapshot returns a copy of the current bookkeeping for polling by an
// external UI layer.
func (a *ErrorAggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := Snapshot{
		FileErrorCounts: make(map[string]int, len(a.fileCounts)),
		KindLastSeen:    make(map[syncerr.Kind]time.Time, len(a.kindSince)),
	}
	for k, v := range a.fileCounts {
		out.FileErrorCounts[k] = v
	}
	for k, v := range a.kindSince {
		out.KindLastSeen[k] = v
	}
	return out
}
