package monitor

import (
	"sync"
	"time"
)

// CooldownGate throttles snapshots. It is checked once per debounce batch,
// at the point a snapshot would be written, never per file.
type CooldownGate struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
}

// NewCooldownGate returns a gate with the given minimum gap between
// snapshots.
func NewCooldownGate(window time.Duration) *CooldownGate {
	return &CooldownGate{window: window}
}

// Allow reports whether a snapshot may be taken now. The first call is
// always allowed.
func (g *CooldownGate) Allow(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return true
	}
	return now.Sub(g.last) >= g.window
}

// Mark records that a snapshot was taken at now.
func (g *CooldownGate) Mark(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = now
}

// Remaining returns how long until the next snapshot is allowed, zero when
// one is allowed now.
func (g *CooldownGate) Remaining(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return 0
	}
	if rem := g.window - now.Sub(g.last); rem > 0 {
		return rem
	}
	return 0
}
