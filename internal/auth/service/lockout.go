package service

import (
	"sync"
	"time"
)

// Lockout policy defaults: 5 consecutive failures within the window locks
// the identity for the cool-down.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutWindow    = 15 * time.Minute
	DefaultLockoutCooldown  = 15 * time.Minute
)

// Lockout tracks consecutive authentication failures per identity. It is
// the only mutable shared counter state in the core; every update is an
// atomic read-modify-write under the per-identity entry lock, so two
// concurrent failures cannot under-count toward the threshold.
type Lockout struct {
	Threshold int
	Window    time.Duration
	Cooldown  time.Duration
	Clock     func() time.Time

	mu      sync.Mutex
	entries map[string]*lockoutEntry
}

type lockoutEntry struct {
	mu          sync.Mutex
	failures    []time.Time // timestamps of consecutive failures, oldest first
	lockedUntil time.Time
}

func NewLockout() *Lockout {
	return &Lockout{
		Threshold: DefaultLockoutThreshold,
		Window:    DefaultLockoutWindow,
		Cooldown:  DefaultLockoutCooldown,
		entries:   make(map[string]*lockoutEntry),
	}
}

func (l *Lockout) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

func (l *Lockout) entry(identity string) *lockoutEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok {
		e = &lockoutEntry{}
		l.entries[identity] = e
	}
	return e
}

// Locked reports whether the identity is currently in its cool-down.
func (l *Lockout) Locked(identity string) bool {
	e := l.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	return l.now().Before(e.lockedUntil)
}

// RecordFailure registers one failed attempt and returns true when this
// failure tripped the threshold and started a cool-down.
func (l *Lockout) RecordFailure(identity string) bool {
	now := l.now()

	e := l.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Drop failures that slid out of the window.
	cutoff := now.Add(-l.Window)
	kept := e.failures[:0]
	for _, t := range e.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.failures = append(kept, now)

	if len(e.failures) >= l.Threshold {
		e.lockedUntil = now.Add(l.Cooldown)
		e.failures = e.failures[:0]
		return true
	}
	return false
}

// Reset clears the failure streak after a successful authentication.
func (l *Lockout) Reset(identity string) {
	e := l.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures = e.failures[:0]
	e.lockedUntil = time.Time{}
}
