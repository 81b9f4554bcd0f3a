package room

import (
	"context"
	"testing"

	"CProject/service/store"
	"CProject/tools/errs"
)

func TestAuthorizeAdHocRoom(t *testing.T) {
	a := NewStoreAuthorizer(store.NewMemoryStore(), NewRegistry(), 0)
	r, err := a.AuthorizeJoin(context.Background(), "fresh", "alice")
	if err != nil {
		t.Fatalf("ad-hoc join must be allowed: %v", err)
	}
	if r != nil {
		t.Fatalf("ad-hoc room has no record, got %+v", r)
	}
}

func TestAuthorizeTombstonedRoom(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedRoom(store.Room{RoomMetadata: store.RoomMetadata{ID: "gone"}, Deleted: true})
	a := NewStoreAuthorizer(st, NewRegistry(), 0)

	if _, err := a.AuthorizeJoin(context.Background(), "gone", "alice"); !errs.ErrRoomNotFound.Is(err) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestAuthorizePrivateRoom(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedRoom(store.Room{
		RoomMetadata: store.RoomMetadata{ID: "p", IsPublic: false},
		Members:      []string{"alice"},
	})
	a := NewStoreAuthorizer(st, NewRegistry(), 0)
	ctx := context.Background()

	if _, err := a.AuthorizeJoin(ctx, "p", "alice"); err != nil {
		t.Fatalf("member join: %v", err)
	}
	if _, err := a.AuthorizeJoin(ctx, "p", "mallory"); !errs.ErrRoomUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %v", err)
	}
}

func TestAuthorizeCapacity(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedRoom(store.Room{
		RoomMetadata: store.RoomMetadata{ID: "r1", IsPublic: true},
		MaxOccupancy: 2,
	})
	reg := NewRegistry()
	reg.Join("r1", "u1", "c1", nil)
	reg.Join("r1", "u2", "c2", nil)
	a := NewStoreAuthorizer(st, reg, 0)
	ctx := context.Background()

	if _, err := a.AuthorizeJoin(ctx, "r1", "u3"); !errs.ErrRoomAtCapacity.Is(err) {
		t.Fatalf("want at capacity, got %v", err)
	}
	// present users reconnecting are never blocked by the cap
	if _, err := a.AuthorizeJoin(ctx, "r1", "u1"); err != nil {
		t.Fatalf("present user: %v", err)
	}
}

func TestAuthorizeDefaultCapacity(t *testing.T) {
	reg := NewRegistry()
	reg.Join("r1", "u1", "c1", nil)
	a := NewStoreAuthorizer(store.NewMemoryStore(), reg, 1)

	if _, err := a.AuthorizeJoin(context.Background(), "r1", "u2"); !errs.ErrRoomAtCapacity.Is(err) {
		t.Fatalf("gateway default cap must apply to ad-hoc rooms, got %v", err)
	}
}
