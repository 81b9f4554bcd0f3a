package store

import (
	"context"
	"time"
)

// RoomMetadata is the slice of room state exposed to clients in snapshots.
// Name is a pointer so an ad-hoc room serializes as name:null.
type RoomMetadata struct {
	ID       string  `json:"id" bson:"_id"`
	Name     *string `json:"name" bson:"name"`
	IsPublic bool    `json:"is_public" bson:"is_public"`
}

// Room is the full persisted record, including fields the authorization
// provider consumes but snapshots do not carry.
type Room struct {
	RoomMetadata `bson:",inline"`
	Members      []string  `bson:"members,omitempty"`
	MaxOccupancy int       `bson:"max_occupancy,omitempty"` // <=0 falls back to the gateway default
	Deleted      bool      `bson:"deleted,omitempty"`       // tombstone; joins answer not-found
	CreatedAt    time.Time `bson:"created_at,omitempty"`
}

// IsMember reports whether userID may enter a private room.
func (r *Room) IsMember(userID string) bool {
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type Comment struct {
	ID         string         `json:"id" bson:"_id"`
	RoomID     string         `json:"room_id" bson:"room_id"`
	AuthorID   string         `json:"author_id" bson:"author_id"`
	Body       string         `json:"body" bson:"body"`
	AnchorID   string         `json:"anchor_id,omitempty" bson:"anchor_id,omitempty"`
	AnchorType string         `json:"anchor_type,omitempty" bson:"anchor_type,omitempty"`
	ParentID   string         `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Position   map[string]any `json:"position,omitempty" bson:"position,omitempty"`
	Resolved   bool           `json:"resolved" bson:"resolved"`
	ResolvedBy string         `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" bson:"updated_at"`
}

// CommentInput carries the validated fields of a comment:create event.
type CommentInput struct {
	RoomID     string
	AuthorID   string
	Body       string
	AnchorID   string
	AnchorType string
	ParentID   string
	Position   map[string]any
}

// RoomStore is the persistence collaborator consumed by the coordination
// core. All methods may suspend on I/O; the core calls them only from the
// session goroutine handling the originating request.
//
// Mutations enforce ownership: UpdateComment/DeleteComment require the caller
// to be the comment author and answer errs.ErrCommentForbidden otherwise.
// ResolveComment accepts any caller when system is true (moderation path).
type RoomStore interface {
	// GetRoom returns (nil, nil) for a room with no persisted record.
	GetRoom(ctx context.Context, roomID string) (*Room, error)
	ListComments(ctx context.Context, roomID string) ([]Comment, error)
	CreateComment(ctx context.Context, in CommentInput) (*Comment, error)
	UpdateComment(ctx context.Context, roomID, commentID, callerID, body string) (*Comment, error)
	DeleteComment(ctx context.Context, roomID, commentID, callerID string) error
	ResolveComment(ctx context.Context, roomID, commentID, callerID string, system bool) (*Comment, error)
}
