package room

import (
	"testing"
)

func TestRegistryJoinLeaveLifecycle(t *testing.T) {
	reg := NewRegistry()

	d := reg.Join("r1", "alice", "c1", Meta{"name": "Alice"})
	if d == nil || d.Kind != DeltaJoined {
		t.Fatalf("first join: want joined delta, got %+v", d)
	}
	if got := reg.Count("r1"); got != 1 {
		t.Fatalf("count after join = %d, want 1", got)
	}

	d = reg.Leave("r1", "alice", "c1")
	if d == nil || d.Kind != DeltaLeft {
		t.Fatalf("last leave: want left delta, got %+v", d)
	}
	if got := reg.Count("r1"); got != 0 {
		t.Fatalf("count after leave = %d, want 0", got)
	}
}

func TestRegistryMultiDevice(t *testing.T) {
	reg := NewRegistry()

	reg.Join("r1", "alice", "c1", Meta{"name": "Alice"})
	d := reg.Join("r1", "alice", "c2", Meta{"status": "busy"})
	if d == nil || d.Kind != DeltaUpdated {
		t.Fatalf("second device: want updated delta, got %+v", d)
	}
	if got := reg.Count("r1"); got != 1 {
		t.Fatalf("two devices must count as one user, got %d", got)
	}
	// second device's metadata merged over the first
	if d.Meta["name"] != "Alice" || d.Meta["status"] != "busy" {
		t.Fatalf("merged meta = %v", d.Meta)
	}

	// first device gone, user still present
	if d := reg.Leave("r1", "alice", "c1"); d != nil {
		t.Fatalf("non-last leave must be invisible, got %+v", d)
	}
	if got := reg.Count("r1"); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	if d := reg.Leave("r1", "alice", "c2"); d == nil || d.Kind != DeltaLeft {
		t.Fatalf("last leave: want left delta, got %+v", d)
	}
}

func TestRegistryLeaveIdempotent(t *testing.T) {
	reg := NewRegistry()
	reg.Join("r1", "alice", "c1", nil)
	if d := reg.Leave("r1", "alice", "c1"); d == nil {
		t.Fatalf("first leave must be visible")
	}
	if d := reg.Leave("r1", "alice", "c1"); d != nil {
		t.Fatalf("repeated leave must be nil, got %+v", d)
	}
	if d := reg.Leave("r9", "nobody", "cX"); d != nil {
		t.Fatalf("unknown key leave must be nil, got %+v", d)
	}
}

func TestRegistryUpdateMeta(t *testing.T) {
	reg := NewRegistry()
	reg.Join("r1", "alice", "c1", Meta{"name": "Alice", "status": "active"})

	d := reg.UpdateMeta("r1", "alice", Meta{"status": "away"})
	if d == nil || d.Kind != DeltaUpdated {
		t.Fatalf("want updated delta, got %+v", d)
	}
	if d.Meta["status"] != "away" || d.Meta["name"] != "Alice" {
		t.Fatalf("patch must merge, got %v", d.Meta)
	}

	if d := reg.UpdateMeta("r1", "ghost", Meta{"status": "away"}); d != nil {
		t.Fatalf("absent user update must be nil, got %+v", d)
	}
}

func TestRegistryListOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Join("r1", "alice", "c1", nil)
	reg.Join("r1", "bob", "c2", nil)
	reg.Join("r1", "alice", "c3", nil) // second device must not reorder

	list := reg.List("r1")
	if len(list) != 2 {
		t.Fatalf("list size = %d, want 2", len(list))
	}
	if list[0].UserID != "alice" || list[1].UserID != "bob" {
		t.Fatalf("order = %s,%s", list[0].UserID, list[1].UserID)
	}

	if got := reg.List("empty"); len(got) != 0 || got == nil {
		t.Fatalf("empty room must list as [], got %v", got)
	}
}

func TestRegistryRoomsIsolated(t *testing.T) {
	reg := NewRegistry()
	reg.Join("r1", "alice", "c1", nil)
	reg.Join("r2", "alice", "c2", nil)

	if d := reg.Leave("r1", "alice", "c1"); d == nil || d.Kind != DeltaLeft {
		t.Fatalf("r1 leave: got %+v", d)
	}
	if got := reg.Count("r2"); got != 1 {
		t.Fatalf("r2 must be untouched, count = %d", got)
	}
}
