package room

// Inbound event vocabulary (client -> gateway). room:join and room:leave are
// protocol-level; the rest are relayed to other members of the room topic.
const (
	EvtRoomJoin        = "room:join"
	EvtRoomLeave       = "room:leave"
	EvtCursorUpdate    = "cursor:update"
	EvtSelectionUpdate = "selection:update"
	EvtPresenceUpdate  = "presence:update"
	EvtTypingStart     = "typing:start"
	EvtTypingStop      = "typing:stop"
	EvtCommentCreate   = "comment:create"
	EvtCommentUpdate   = "comment:update"
	EvtCommentDelete   = "comment:delete"
	EvtCommentResolve  = "comment:resolve"
)

// Outbound event vocabulary (gateway -> client).
const (
	EvtRoomState       = "room_state"
	EvtPresenceState   = "presence_state"
	EvtPresenceJoined  = "presence:joined"
	EvtPresenceLeft    = "presence:left"
	EvtPresenceUpdated = "presence:updated"
	EvtCommentCreated  = "comment:created"
	EvtCommentUpdated  = "comment:updated"
	EvtCommentDeleted  = "comment:deleted"
	EvtCommentResolved = "comment:resolved"
	EvtError           = "error"
)

// TopicName is the room's real-time topic identifier as exposed to clients
// and external systems.
func TopicName(roomID string) string { return "room:" + roomID }

// Meta is a user's display metadata (name, avatar, color, status, ...).
type Meta map[string]any

// Clone returns a shallow copy; nil stays nil.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m with patch applied on top (shallow, newest wins).
func (m Meta) Merge(patch Meta) Meta {
	out := make(Meta, len(m)+len(patch))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Identity is the authenticated principal bound to one connection.
type Identity struct {
	UserID string
	Name   string
	Avatar string
}

// DeltaKind tags the externally visible effect of a presence mutation.
type DeltaKind string

const (
	DeltaJoined  DeltaKind = "joined"
	DeltaLeft    DeltaKind = "left"
	DeltaUpdated DeltaKind = "updated"
)

// PresenceDelta describes the effect of one registry mutation. A nil
// *PresenceDelta means "no externally visible change" and must never be
// broadcast.
type PresenceDelta struct {
	Kind   DeltaKind
	RoomID string
	UserID string
	Meta   Meta
}

// PresenceEntry is one distinct user in a room, metadata taken from the most
// recently joined or updated session.
type PresenceEntry struct {
	UserID string `json:"user_id"`
	Meta   Meta   `json:"metadata"`
}
