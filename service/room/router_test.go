package room

import (
	"encoding/json"
	"sync"
	"testing"
)

// fakeSub records decoded frames; full simulates a saturated send queue.
type fakeSub struct {
	id   string
	full bool

	mu     sync.Mutex
	frames []Frame
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Enqueue(payload []byte) bool {
	if f.full {
		return false
	}
	var fr Frame
	if err := json.Unmarshal(payload, &fr); err != nil {
		panic("fakeSub: bad frame: " + err.Error())
	}
	f.mu.Lock()
	f.frames = append(f.frames, fr)
	f.mu.Unlock()
	return true
}

func (f *fakeSub) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames))
	for i, fr := range f.frames {
		out[i] = fr.Event
	}
	return out
}

func (f *fakeSub) last() *Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	fr := f.frames[len(f.frames)-1]
	return &fr
}

func TestRouterExcludesSender(t *testing.T) {
	r := NewRouter()
	a := &fakeSub{id: "ca"}
	b := &fakeSub{id: "cb"}
	c := &fakeSub{id: "cc"}
	r.Subscribe("r1", a)
	r.Subscribe("r1", b)
	r.Subscribe("r1", c)

	r.Publish("r1", "ca", EvtCursorUpdate, map[string]any{"x": 1.0})

	if len(a.events()) != 0 {
		t.Fatalf("sender must not receive its own event, got %v", a.events())
	}
	if len(b.events()) != 1 || len(c.events()) != 1 {
		t.Fatalf("others must receive exactly one event, got %v / %v", b.events(), c.events())
	}
}

func TestRouterPublishAll(t *testing.T) {
	r := NewRouter()
	a := &fakeSub{id: "ca"}
	b := &fakeSub{id: "cb"}
	r.Subscribe("r1", a)
	r.Subscribe("r1", b)

	r.PublishAll("r1", EvtCommentResolved, map[string]any{"id": "k1"})

	if len(a.events()) != 1 || len(b.events()) != 1 {
		t.Fatalf("publish_all must reach everyone, got %v / %v", a.events(), b.events())
	}
}

func TestRouterPerRecipientOrder(t *testing.T) {
	r := NewRouter()
	a := &fakeSub{id: "ca"}
	r.Subscribe("r1", a)

	r.Publish("r1", "cx", EvtCursorUpdate, map[string]any{"seq": 1})
	r.Publish("r1", "cx", EvtSelectionUpdate, map[string]any{"seq": 2})
	r.Publish("r1", "cx", EvtCursorUpdate, map[string]any{"seq": 3})

	want := []string{EvtCursorUpdate, EvtSelectionUpdate, EvtCursorUpdate}
	got := a.events()
	if len(got) != len(want) {
		t.Fatalf("events = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order broken at %d: %v", i, got)
		}
	}
}

func TestRouterUnsubscribe(t *testing.T) {
	r := NewRouter()
	a := &fakeSub{id: "ca"}
	b := &fakeSub{id: "cb"}
	r.Subscribe("r1", a)
	r.Subscribe("r1", b)

	r.Unsubscribe("r1", "ca")
	r.Unsubscribe("r1", "ca") // idempotent
	r.Publish("r1", "", EvtCursorUpdate, nil)

	if len(a.events()) != 0 {
		t.Fatalf("unsubscribed conn received events: %v", a.events())
	}
	if len(b.events()) != 1 {
		t.Fatalf("remaining conn events = %v", b.events())
	}

	r.Unsubscribe("r1", "cb")
	if got := r.Subscribers("r1"); got != 0 {
		t.Fatalf("subscribers = %d, want 0", got)
	}
	// publishing into a dropped topic is a no-op
	r.Publish("r1", "", EvtCursorUpdate, nil)
}

// A join racing the last other member's teardown must never land on a topic
// that was concurrently dropped for being empty; the new subscriber has to
// stay reachable by the publishes that follow.
func TestRouterSubscribeDuringTopicTeardown(t *testing.T) {
	r := NewRouter()

	const rounds = 2000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			a := &fakeSub{id: "a"}
			r.Subscribe("r1", a)
			r.Unsubscribe("r1", "a")
		}
	}()

	for i := 0; i < rounds; i++ {
		b := &fakeSub{id: "b"}
		r.Subscribe("r1", b)
		if got := r.Subscribers("r1"); got < 1 {
			t.Fatalf("round %d: subscriber lost right after subscribe", i)
		}
		r.Publish("r1", "", EvtCursorUpdate, nil)
		if len(b.events()) != 1 {
			t.Fatalf("round %d: subscribed connection missed a publish", i)
		}
		r.Unsubscribe("r1", "b")
	}
	<-done
}

func TestRouterSlowSubscriberIsolated(t *testing.T) {
	r := NewRouter()
	slow := &fakeSub{id: "slow", full: true}
	ok := &fakeSub{id: "ok"}
	r.Subscribe("r1", slow)
	r.Subscribe("r1", ok)

	r.Publish("r1", "", EvtCursorUpdate, map[string]any{"x": 1.0})

	if len(ok.events()) != 1 {
		t.Fatalf("healthy subscriber starved by a slow one: %v", ok.events())
	}
	// the slow subscriber stays subscribed; its own disconnect path removes it
	if got := r.Subscribers("r1"); got != 2 {
		t.Fatalf("subscribers = %d, want 2", got)
	}
}
