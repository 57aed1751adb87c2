package sentinel

import (
	"sync"
	"time"
)

// DedupTTL is how long an alert for the same (detector, sessionKey) pair
// is suppressed after a firing.
const DedupTTL = 5 * time.Minute

// dedupTable maps (detector, sessionKey) to the last delivered firing.
// Entries are never removed, only shadowed by later timestamps; the key
// space (detector × live session) is bounded and short-lived, so the
// table stays small for the process lifetime.
type dedupTable struct {
	mu        sync.Mutex
	lastFired map[string]time.Time
	ttl       time.Duration
}

func newDedupTable(ttl time.Duration) *dedupTable {
	return &dedupTable{
		lastFired: make(map[string]time.Time),
		ttl:       ttl,
	}
}

// shouldFire reports whether a new firing is allowed, recording it when
// so. A suppressed firing does not refresh the window.
func (d *dedupTable) shouldFire(detector, sessionKey string, now time.Time) bool {
	key := detector + "|" + sessionKey

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastFired[key]; ok && now.Sub(last) < d.ttl {
		return false
	}
	d.lastFired[key] = now
	return true
}
