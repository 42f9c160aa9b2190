package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fixedClock lets tests advance time deterministically.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGuard(cfg Config) (*Guard, *fixedClock) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	g := New(cfg)
	g.now = clock.Now
	return g, clock
}

func TestLockoutAfterMaxFailures(t *testing.T) {
	g, clock := newTestGuard(DefaultLogin)

	for i := 0; i < DefaultLogin.MaxAttempts; i++ {
		if g.IsLocked("admin@example.com", "10.0.0.1") {
			t.Fatalf("locked after only %d failures", i)
		}
		g.RecordAttempt("admin@example.com", "10.0.0.1", false)
	}
	if !g.IsLocked("admin@example.com", "10.0.0.1") {
		t.Fatal("expected lockout after max failures")
	}

	clock.Advance(14 * time.Minute)
	if !g.IsLocked("admin@example.com", "10.0.0.1") {
		t.Fatal("lockout released too early")
	}
	clock.Advance(61 * time.Second)
	if g.IsLocked("admin@example.com", "10.0.0.1") {
		t.Fatal("lockout not lazily cleared after expiry")
	}
}

func TestLockoutKeyedByEmailAndIP(t *testing.T) {
	g, _ := newTestGuard(DefaultLogin)

	for i := 0; i < DefaultLogin.MaxAttempts; i++ {
		g.RecordAttempt("admin@example.com", "10.0.0.1", false)
	}
	if !g.IsLocked("admin@example.com", "10.9.9.9") {
		t.Fatal("expected email key to lock regardless of IP")
	}
	if !g.IsLocked("other@example.com", "10.0.0.1") {
		t.Fatal("expected IP key to lock regardless of email")
	}
	if g.IsLocked("other@example.com", "10.9.9.9") {
		t.Fatal("unrelated email+IP pair locked")
	}
}

func TestSuccessClearsOnlyAffectedPair(t *testing.T) {
	g, _ := newTestGuard(DefaultLogin)

	for i := 0; i < DefaultLogin.MaxAttempts; i++ {
		g.RecordAttempt("admin@example.com", "10.0.0.1", false)
		g.RecordAttempt("other@example.com", "10.2.2.2", false)
	}
	g.RecordAttempt("admin@example.com", "10.0.0.1", true)

	if g.IsLocked("admin@example.com", "10.0.0.1") {
		t.Fatal("success did not clear the affected pair")
	}
	if !g.IsLocked("other@example.com", "10.2.2.2") {
		t.Fatal("success cleared an unrelated pair")
	}
}

func TestWindowPruneForgetsOldFailures(t *testing.T) {
	g, clock := newTestGuard(DefaultLogin)

	for i := 0; i < DefaultLogin.MaxAttempts-1; i++ {
		g.RecordAttempt("admin@example.com", "10.0.0.1", false)
	}
	clock.Advance(16 * time.Minute)
	g.RecordAttempt("admin@example.com", "10.0.0.1", false)
	if g.IsLocked("admin@example.com", "10.0.0.1") {
		t.Fatal("stale failures outside the window still count")
	}
}

func TestThrottleCountsEveryCall(t *testing.T) {
	g, _ := newTestGuard(DefaultReset)

	for i := 0; i < DefaultReset.MaxAttempts; i++ {
		if g.Throttle("admin@example.com", "10.0.0.1") {
			t.Fatalf("throttled after only %d calls", i)
		}
	}
	if !g.Throttle("admin@example.com", "10.0.0.1") {
		t.Fatal("expected throttle once the budget is spent")
	}
}

func TestThrottleIPBucketSharedAcrossEmails(t *testing.T) {
	g, _ := newTestGuard(DefaultReset)

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}
	for _, email := range emails {
		if g.Throttle(email, "10.0.0.1") {
			t.Fatalf("throttled early for %s", email)
		}
	}
	if !g.Throttle("f@x.com", "10.0.0.1") {
		t.Fatal("IP bucket not shared across distinct emails")
	}
}

func TestConcurrentFailuresRespectThreshold(t *testing.T) {
	g, _ := newTestGuard(DefaultLogin)

	var wg sync.WaitGroup
	for i := 0; i < 4*DefaultLogin.MaxAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.RecordAttempt("admin@example.com", "10.0.0.1", false)
		}()
	}
	wg.Wait()
	if !g.IsLocked("admin@example.com", "10.0.0.1") {
		t.Fatal("concurrent failures bypassed the lockout threshold")
	}
}
