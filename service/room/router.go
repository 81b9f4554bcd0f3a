package room

import (
	"sync"

	"CProject/logger"
)

// Subscriber is one connection's outbound queue as seen by the router.
// Enqueue must never block; it reports false when the payload was dropped
// (slow or dead client — the gateway's own disconnect detection removes it).
type Subscriber interface {
	ID() string
	Enqueue(payload []byte) bool
}

// Router fans validated events out to the connections subscribed to a room
// topic (keyed by TopicName). Publishes for one room are serialized by the
// topic mutex, so every recipient observes them in a single per-room order;
// rooms never contend with each other. Delivery is fire-and-forget per
// recipient.
//
// Lock order is always r.mu before t.mu. Empty-topic deletion holds both, so
// a topic reachable through r.topics can never lose members it was just
// handed.
type Router struct {
	mu     sync.RWMutex
	topics map[string]*topic
}

type topic struct {
	mu   sync.Mutex
	subs map[string]Subscriber // connID -> subscriber
}

func NewRouter() *Router {
	return &Router{topics: make(map[string]*topic)}
}

// Subscribe adds a connection to the room topic. A connection subscribed
// after a publish began is not guaranteed that event (no backlog). The add
// happens while r.mu is held so a concurrent empty-topic deletion cannot
// orphan the new subscriber.
func (r *Router) Subscribe(roomID string, sub Subscriber) {
	key := TopicName(roomID)
	r.mu.Lock()
	t := r.topics[key]
	if t == nil {
		t = &topic{subs: make(map[string]Subscriber)}
		r.topics[key] = t
	}
	t.mu.Lock()
	t.subs[sub.ID()] = sub
	t.mu.Unlock()
	r.mu.Unlock()
}

// Unsubscribe removes a connection; idempotent. Empty topics are dropped.
func (r *Router) Unsubscribe(roomID, connID string) {
	key := TopicName(roomID)
	r.mu.RLock()
	t := r.topics[key]
	r.mu.RUnlock()
	if t == nil {
		return
	}

	t.mu.Lock()
	delete(t.subs, connID)
	empty := len(t.subs) == 0
	t.mu.Unlock()

	if empty {
		r.mu.Lock()
		if cur := r.topics[key]; cur == t {
			cur.mu.Lock()
			if len(cur.subs) == 0 {
				delete(r.topics, key)
			}
			cur.mu.Unlock()
		}
		r.mu.Unlock()
	}
}

// Publish delivers to every subscribed connection except the originating
// one.
func (r *Router) Publish(roomID, originConnID, event string, payload any) {
	r.fanout(roomID, originConnID, event, payload)
}

// PublishAll delivers to every subscribed connection; used for
// system-originated events such as a moderation resolve.
func (r *Router) PublishAll(roomID, event string, payload any) {
	r.fanout(roomID, "", event, payload)
}

func (r *Router) fanout(roomID, exclude, event string, payload any) {
	key := TopicName(roomID)
	r.mu.RLock()
	t := r.topics[key]
	r.mu.RUnlock()
	if t == nil {
		return
	}

	data := BuildFrame(event, payload)
	if data == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, sub := range t.subs {
		if exclude != "" && id == exclude {
			continue
		}
		if !sub.Enqueue(data) {
			// slow client: skip, the session's own teardown reclaims it
			logger.Debugf("[router] drop %s topic=%s conn=%s", event, key, id)
		}
	}
}

// Subscribers reports the current topic size (stats, tests).
func (r *Router) Subscribers(roomID string) int {
	r.mu.RLock()
	t := r.topics[TopicName(roomID)]
	r.mu.RUnlock()
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
