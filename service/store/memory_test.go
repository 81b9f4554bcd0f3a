package store

import (
	"context"
	"testing"

	"CProject/tools/errs"
)

func TestMemoryStoreCommentLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, err := s.CreateComment(ctx, CommentInput{RoomID: "r1", AuthorID: "alice", Body: "first"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		t.Fatalf("comment = %+v", c)
	}

	updated, err := s.UpdateComment(ctx, "r1", c.ID, "alice", "edited")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Body != "edited" {
		t.Fatalf("body = %q", updated.Body)
	}

	list, err := s.ListComments(ctx, "r1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v", list, err)
	}

	if err := s.DeleteComment(ctx, "r1", c.ID, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteComment(ctx, "r1", c.ID, "alice"); !errs.ErrCommentNotFound.Is(err) {
		t.Fatalf("second delete: want not found, got %v", err)
	}
}

func TestMemoryStoreOwnership(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	c, _ := s.CreateComment(ctx, CommentInput{RoomID: "r1", AuthorID: "alice", Body: "mine"})

	if _, err := s.UpdateComment(ctx, "r1", c.ID, "bob", "stolen"); !errs.ErrCommentForbidden.Is(err) {
		t.Fatalf("update by non-author: want forbidden, got %v", err)
	}
	if err := s.DeleteComment(ctx, "r1", c.ID, "bob"); !errs.ErrCommentForbidden.Is(err) {
		t.Fatalf("delete by non-author: want forbidden, got %v", err)
	}

	// resolve is open to any member
	r, err := s.ResolveComment(ctx, "r1", c.ID, "bob", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !r.Resolved || r.ResolvedBy != "bob" {
		t.Fatalf("resolved = %+v", r)
	}

	r, err = s.ResolveComment(ctx, "r1", c.ID, "", true)
	if err != nil {
		t.Fatalf("system resolve: %v", err)
	}
	if r.ResolvedBy != "system" {
		t.Fatalf("resolved_by = %q", r.ResolvedBy)
	}
}

func TestMemoryStoreGetRoom(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	r, err := s.GetRoom(ctx, "nope")
	if err != nil || r != nil {
		t.Fatalf("unknown room: got %v, %v", r, err)
	}

	name := "Board"
	s.SeedRoom(Room{RoomMetadata: RoomMetadata{ID: "r1", Name: &name, IsPublic: true}})
	r, err = s.GetRoom(ctx, "r1")
	if err != nil || r == nil || *r.Name != name {
		t.Fatalf("seeded room: got %+v, %v", r, err)
	}
}
