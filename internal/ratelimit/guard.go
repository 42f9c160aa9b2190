// Package ratelimit implements in-process sliding-window attempt tracking
// with lockout. State is intentionally ephemeral: a restart clears every
// window and lockout, which is the accepted tradeoff for a single-instance
// deployment.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Config sets the window, threshold and lockout for one guard instance.
type Config struct {
	Window      time.Duration // Sliding window for counted attempts.
	MaxAttempts int           // Attempts within the window before lockout.
	Lockout     time.Duration // Lockout duration once the threshold is hit.
}

// DefaultLogin matches the login policy: 10 failures in 15 minutes locks
// the email and origin IP for 15 minutes.
var DefaultLogin = Config{Window: 15 * time.Minute, MaxAttempts: 10, Lockout: 15 * time.Minute}

// DefaultReset matches the reset-request policy: 5 calls in 15 minutes.
var DefaultReset = Config{Window: 15 * time.Minute, MaxAttempts: 5, Lockout: 15 * time.Minute}

// Guard tracks attempts per composite key (email and origin IP) under one
// mutex, so prune + append + threshold check behave as a single atomic unit
// per instance. Construct one per limited surface and inject it; the maps
// are not global state.
type Guard struct {
	cfg Config

	mu       sync.Mutex
	attempts map[string][]time.Time
	lockouts map[string]time.Time

	now func() time.Time
}

// New constructs a guard with the given configuration.
func New(cfg Config) *Guard {
	return &Guard{
		cfg:      cfg,
		attempts: make(map[string][]time.Time),
		lockouts: make(map[string]time.Time),
		now:      time.Now,
	}
}

// keysFor builds the two composite keys for an email + origin pair.
func keysFor(email, ip string) [2]string {
	return [2]string{
		"email:" + strings.ToLower(strings.TrimSpace(email)),
		"ip:" + strings.TrimSpace(ip),
	}
}

// IsLocked reports whether the email or the origin IP is currently locked
// out. A lockout whose time has passed is lazily cleared.
func (g *Guard) IsLocked(email, ip string) bool {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range keysFor(email, ip) {
		until, ok := g.lockouts[key]
		if !ok {
			continue
		}
		if until.After(now) {
			return true
		}
		delete(g.lockouts, key)
	}
	return false
}

// RecordAttempt registers a login outcome. Success clears the window and
// lockout for exactly this email + IP pair; failure appends a timestamp to
// both keys and arms the lockout once a key reaches the threshold.
func (g *Guard) RecordAttempt(email, ip string, success bool) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(now)
	keys := keysFor(email, ip)
	if success {
		for _, key := range keys {
			delete(g.attempts, key)
			delete(g.lockouts, key)
		}
		return
	}
	for _, key := range keys {
		stamps := append(g.attempts[key], now)
		g.attempts[key] = stamps
		if len(stamps) >= g.cfg.MaxAttempts {
			g.lockouts[key] = now.Add(g.cfg.Lockout)
		}
	}
}

// Throttle implements reset-request limiting: every call that is not
// already over the limit counts as an attempt regardless of outcome, and
// the call is throttled when any key has exhausted its budget. The email
// and IP buckets are independent, so repeated requests for different
// emails from one address still drain the IP bucket.
func (g *Guard) Throttle(email, ip string) bool {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(now)
	limited := false
	for _, key := range keysFor(email, ip) {
		if len(g.attempts[key]) >= g.cfg.MaxAttempts {
			limited = true
			continue
		}
		g.attempts[key] = append(g.attempts[key], now)
	}
	return limited
}

// prune drops timestamps outside the sliding window from every key.
// Callers must hold the mutex.
func (g *Guard) prune(now time.Time) {
	cutoff := now.Add(-g.cfg.Window)
	for key, stamps := range g.attempts {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(g.attempts, key)
			continue
		}
		g.attempts[key] = kept
	}
}
