package room

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

const presenceShards = 32

// Registry is the per-room multi-device presence set. Rooms are spread over
// fixed shards so independent rooms never contend; mutations within one room
// are linearized by its shard lock. Every operation is total: no errors, a
// nil delta means "nothing externally visible happened".
type Registry struct {
	shards [presenceShards]*presenceShard
	clock  func() time.Time
}

type presenceShard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*presenceEntry // roomID -> userID -> entry
}

// presenceEntry tracks one user's open connections in one room. conns keeps
// join order; meta is the current display metadata (most recent join or
// update wins).
type presenceEntry struct {
	conns     []connSlot
	meta      Meta
	firstSeen time.Time
}

type connSlot struct {
	id       string
	joinedAt time.Time
}

func NewRegistry() *Registry {
	r := &Registry{clock: time.Now}
	for i := range r.shards {
		r.shards[i] = &presenceShard{rooms: make(map[string]map[string]*presenceEntry)}
	}
	return r
}

func (r *Registry) shard(roomID string) *presenceShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	return r.shards[h.Sum32()%presenceShards]
}

// Join adds a connection to the user's entry. First connection for the user
// yields a joined delta; an additional device yields updated (metadata may
// change, never a duplicate "user appeared").
func (r *Registry) Join(roomID, userID, connID string, meta Meta) *PresenceDelta {
	now := r.clock()
	s := r.shard(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.rooms[roomID]
	if users == nil {
		users = make(map[string]*presenceEntry)
		s.rooms[roomID] = users
	}

	e, ok := users[userID]
	if !ok {
		e = &presenceEntry{
			conns:     []connSlot{{id: connID, joinedAt: now}},
			meta:      meta.Clone(),
			firstSeen: now,
		}
		users[userID] = e
		return &PresenceDelta{Kind: DeltaJoined, RoomID: roomID, UserID: userID, Meta: e.meta.Clone()}
	}

	e.conns = append(e.conns, connSlot{id: connID, joinedAt: now})
	e.meta = e.meta.Merge(meta)
	return &PresenceDelta{Kind: DeltaUpdated, RoomID: roomID, UserID: userID, Meta: e.meta.Clone()}
}

// Leave removes one connection. Only the removal of the user's last
// connection is externally visible (left delta); otherwise nil. Idempotent on
// unknown keys.
func (r *Registry) Leave(roomID, userID, connID string) *PresenceDelta {
	s := r.shard(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.rooms[roomID]
	if users == nil {
		return nil
	}
	e, ok := users[userID]
	if !ok {
		return nil
	}

	removed := false
	for i, c := range e.conns {
		if c.id == connID {
			e.conns = append(e.conns[:i], e.conns[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return nil
	}
	if len(e.conns) > 0 {
		return nil
	}

	delete(users, userID)
	if len(users) == 0 {
		delete(s.rooms, roomID)
	}
	return &PresenceDelta{Kind: DeltaLeft, RoomID: roomID, UserID: userID, Meta: e.meta.Clone()}
}

// UpdateMeta shallow-merges patch over the user's current metadata. Returns
// nil when the user has no presence in the room.
func (r *Registry) UpdateMeta(roomID, userID string, patch Meta) *PresenceDelta {
	s := r.shard(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.rooms[roomID]
	if users == nil {
		return nil
	}
	e, ok := users[userID]
	if !ok {
		return nil
	}
	e.meta = e.meta.Merge(patch)
	return &PresenceDelta{Kind: DeltaUpdated, RoomID: roomID, UserID: userID, Meta: e.meta.Clone()}
}

// List returns one entry per distinct user, ordered by first appearance.
func (r *Registry) List(roomID string) []PresenceEntry {
	s := r.shard(roomID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := s.rooms[roomID]
	if len(users) == 0 {
		return []PresenceEntry{}
	}

	type sortable struct {
		entry PresenceEntry
		seen  time.Time
	}
	tmp := make([]sortable, 0, len(users))
	for uid, e := range users {
		tmp = append(tmp, sortable{
			entry: PresenceEntry{UserID: uid, Meta: e.meta.Clone()},
			seen:  e.firstSeen,
		})
	}
	sort.Slice(tmp, func(i, j int) bool {
		if tmp[i].seen.Equal(tmp[j].seen) {
			return tmp[i].entry.UserID < tmp[j].entry.UserID
		}
		return tmp[i].seen.Before(tmp[j].seen)
	})

	out := make([]PresenceEntry, len(tmp))
	for i, t := range tmp {
		out[i] = t.entry
	}
	return out
}

// Count returns the number of distinct users present in the room.
func (r *Registry) Count(roomID string) int {
	s := r.shard(roomID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomID])
}
