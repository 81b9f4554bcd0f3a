package room

import (
	"context"

	"CProject/service/store"
)

// Snapshot is the room_state payload pushed to a freshly joined client.
type Snapshot struct {
	Room     store.RoomMetadata `json:"room"`
	Presence []PresenceEntry    `json:"presence"`
	Comments []store.Comment    `json:"comments"`
}

// Hydrator assembles join-time snapshots: live presence from the registry,
// room metadata and comments from the store, comments optionally served from
// the Redis cache.
type Hydrator struct {
	reg   *Registry
	store store.RoomStore
	cache *store.SnapshotCache
}

func NewHydrator(reg *Registry, st store.RoomStore, cache *store.SnapshotCache) *Hydrator {
	return &Hydrator{reg: reg, store: st, cache: cache}
}

// Hydrate never fails for an unknown room id: an ad-hoc room hydrates to
// {id, name:null, is_public:true} with no comments. Only a store failure is
// an error.
func (h *Hydrator) Hydrate(ctx context.Context, roomID string) (*Snapshot, error) {
	meta := store.RoomMetadata{ID: roomID, IsPublic: true}
	r, err := h.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r != nil {
		meta = r.RoomMetadata
	}

	comments, hit := h.cache.GetComments(ctx, roomID)
	if !hit {
		comments, err = h.store.ListComments(ctx, roomID)
		if err != nil {
			return nil, err
		}
		h.cache.SetComments(ctx, roomID, comments)
	}
	if comments == nil {
		comments = []store.Comment{}
	}

	return &Snapshot{
		Room:     meta,
		Presence: h.reg.List(roomID),
		Comments: comments,
	}, nil
}
