package room

import (
	"context"

	"CProject/service/store"
	"CProject/tools/errs"
)

// Authorizer decides whether a user may join a room. Denials carry one of
// the errs codes: room not found (tombstoned), unauthorized (private room,
// not a member), at capacity.
type Authorizer interface {
	AuthorizeJoin(ctx context.Context, roomID, userID string) (*store.Room, error)
}

// StoreAuthorizer is the default implementation: room record from the store,
// occupancy from live presence. A room with no persisted record is a valid
// ad-hoc public room.
type StoreAuthorizer struct {
	store      store.RoomStore
	reg        *Registry
	defaultCap int // <=0 unlimited
}

func NewStoreAuthorizer(st store.RoomStore, reg *Registry, defaultCap int) *StoreAuthorizer {
	return &StoreAuthorizer{store: st, reg: reg, defaultCap: defaultCap}
}

func (a *StoreAuthorizer) AuthorizeJoin(ctx context.Context, roomID, userID string) (*store.Room, error) {
	r, err := a.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r != nil {
		if r.Deleted {
			return nil, errs.ErrRoomNotFound.WrapMsg("join denied", "room_id", roomID)
		}
		if !r.IsPublic && !r.IsMember(userID) {
			return nil, errs.ErrRoomUnauthorized.WrapMsg("join denied", "room_id", roomID, "user_id", userID)
		}
	}

	limit := a.defaultCap
	if r != nil && r.MaxOccupancy > 0 {
		limit = r.MaxOccupancy
	}
	// a user already present does not consume a second slot
	if limit > 0 && a.reg.Count(roomID) >= limit && !a.present(roomID, userID) {
		return nil, errs.ErrRoomAtCapacity.WrapMsg("join denied", "room_id", roomID)
	}
	return r, nil
}

func (a *StoreAuthorizer) present(roomID, userID string) bool {
	for _, e := range a.reg.List(roomID) {
		if e.UserID == userID {
			return true
		}
	}
	return false
}
