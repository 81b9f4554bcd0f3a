package room

import (
	"testing"
	"time"
)

func testGate(interval time.Duration) *Gate {
	g := NewGate(GateConf{Interval: interval, SweepEvery: time.Hour, StaleAfter: time.Hour})
	return g
}

func TestGateFirstUpdatePasses(t *testing.T) {
	g := testGate(16 * time.Millisecond)
	defer g.Close()

	now := time.Now()
	if !g.AllowAt("r1", "alice", now) {
		t.Fatalf("first update for a fresh key must pass")
	}
	if g.AllowAt("r1", "alice", now.Add(time.Millisecond)) {
		t.Fatalf("update inside the interval must be blocked")
	}
	if !g.AllowAt("r1", "alice", now.Add(16*time.Millisecond)) {
		t.Fatalf("update at exactly the interval must pass")
	}
}

func TestGateBurst(t *testing.T) {
	g := testGate(16 * time.Millisecond)
	defer g.Close()

	// 100 updates spaced 1ms apart: pass at t=0,16,32,...,96 => 7
	now := time.Now()
	passed := 0
	for i := 0; i < 100; i++ {
		if g.AllowAt("r1", "alice", now.Add(time.Duration(i)*time.Millisecond)) {
			passed++
		}
	}
	if passed != 7 {
		t.Fatalf("passed = %d, want 7", passed)
	}
}

func TestGateKeysIndependent(t *testing.T) {
	g := testGate(16 * time.Millisecond)
	defer g.Close()

	now := time.Now()
	if !g.AllowAt("r1", "alice", now) {
		t.Fatalf("alice first update must pass")
	}
	if !g.AllowAt("r1", "bob", now) {
		t.Fatalf("bob must not be throttled by alice")
	}
	if !g.AllowAt("r2", "alice", now) {
		t.Fatalf("same user in another room must not be throttled")
	}
}

func TestGateBlockedUpdateDoesNotRefresh(t *testing.T) {
	g := testGate(16 * time.Millisecond)
	defer g.Close()

	now := time.Now()
	g.AllowAt("r1", "alice", now)
	// a blocked attempt must not push the window forward
	g.AllowAt("r1", "alice", now.Add(10*time.Millisecond))
	if !g.AllowAt("r1", "alice", now.Add(16*time.Millisecond)) {
		t.Fatalf("blocked attempt refreshed the window")
	}
}

func TestGateCleanup(t *testing.T) {
	g := testGate(16 * time.Millisecond)
	defer g.Close()

	now := time.Now()
	g.AllowAt("r1", "alice", now)
	g.AllowAt("r1", "bob", now)
	if got := g.Len(); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}

	g.Cleanup("r1", "alice")
	g.Cleanup("r1", "alice") // idempotent
	if got := g.Len(); got != 1 {
		t.Fatalf("len after cleanup = %d, want 1", got)
	}

	// a cleaned key behaves as fresh again
	if !g.AllowAt("r1", "alice", now.Add(time.Millisecond)) {
		t.Fatalf("cleaned key must pass immediately")
	}

	g.CleanupRoom("r1")
	if got := g.Len(); got != 0 {
		t.Fatalf("len after room cleanup = %d, want 0", got)
	}
}

func TestGateSweepBoundary(t *testing.T) {
	clock := time.Now()
	g := NewGate(GateConf{
		Interval:   16 * time.Millisecond,
		SweepEvery: time.Hour,
		StaleAfter: 5 * time.Minute,
		Clock:      func() time.Time { return clock },
	})
	defer g.Close()

	g.AllowAt("r1", "fresh", clock)
	g.AllowAt("r1", "stale", clock.Add(-5*time.Minute))
	g.AllowAt("r1", "almost", clock.Add(-5*time.Minute+time.Millisecond))

	n := g.Sweep(5 * time.Minute)
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	if got := g.Len(); got != 2 {
		t.Fatalf("len after sweep = %d, want 2", got)
	}

	// the surviving key is still throttled correctly
	if g.AllowAt("r1", "fresh", clock.Add(time.Millisecond)) {
		t.Fatalf("sweep must not reset a live key")
	}
}
