package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"CProject/tools/errs"
	"CProject/tools/ids"
)

// MemoryStore is a mutex-guarded in-process RoomStore. It is the dev default
// when no Mongo URI is configured, and the double used by package tests.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	comments map[string]map[string]*Comment // roomID -> commentID -> comment
	clock    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]*Room),
		comments: make(map[string]map[string]*Comment),
		clock:    time.Now,
	}
}

// SeedRoom registers a persisted room record (admin/test surface).
func (s *MemoryStore) SeedRoom(r Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.rooms[r.ID] = &cp
}

func (s *MemoryStore) GetRoom(_ context.Context, roomID string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListComments(_ context.Context, roomID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.comments[roomID]
	out := make([]Comment, 0, len(m))
	for _, c := range m {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CreateComment(_ context.Context, in CommentInput) (*Comment, error) {
	now := s.clock()
	c := &Comment{
		ID:         ids.GenerateString(),
		RoomID:     in.RoomID,
		AuthorID:   in.AuthorID,
		Body:       in.Body,
		AnchorID:   in.AnchorID,
		AnchorType: in.AnchorType,
		ParentID:   in.ParentID,
		Position:   in.Position,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.comments[in.RoomID]
	if m == nil {
		m = make(map[string]*Comment)
		s.comments[in.RoomID] = m
	}
	m[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) UpdateComment(_ context.Context, roomID, commentID, callerID, body string) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookupLocked(roomID, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != callerID {
		return nil, errs.ErrCommentForbidden.Wrap()
	}
	c.Body = body
	c.UpdatedAt = s.clock()
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) DeleteComment(_ context.Context, roomID, commentID, callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookupLocked(roomID, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != callerID {
		return errs.ErrCommentForbidden.Wrap()
	}
	delete(s.comments[roomID], commentID)
	return nil
}

func (s *MemoryStore) ResolveComment(_ context.Context, roomID, commentID, callerID string, system bool) (*Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookupLocked(roomID, commentID)
	if err != nil {
		return nil, err
	}
	c.Resolved = true
	if system {
		c.ResolvedBy = "system"
	} else {
		c.ResolvedBy = callerID
	}
	c.UpdatedAt = s.clock()
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) lookupLocked(roomID, commentID string) (*Comment, error) {
	m := s.comments[roomID]
	if m == nil {
		return nil, errs.ErrCommentNotFound.Wrap()
	}
	c, ok := m[commentID]
	if !ok {
		return nil, errs.ErrCommentNotFound.Wrap()
	}
	return c, nil
}
