package errs

// Error codes returned to clients in scoped error replies. Component-local
// operations (presence/throttle/router) never produce errors; only join
// authorization, payload validation and delegate (store) calls do.
const (
	ServerInternalError = 500

	ArgsError    = 1001 // malformed inbound event
	TokenInvalid = 1101

	RoomNotFound     = 2001
	RoomUnauthorized = 2002
	RoomAtCapacity   = 2003
	NotJoined        = 2004
	AlreadyJoined    = 2005

	CommentNotFound  = 2101
	CommentForbidden = 2102
	StoreUnavailable = 2103
)

var (
	ErrInternal         = NewCodeError(ServerInternalError, "internal error")
	ErrArgs             = NewCodeError(ArgsError, "invalid payload")
	ErrTokenInvalid     = NewCodeError(TokenInvalid, "invalid token")
	ErrRoomNotFound     = NewCodeError(RoomNotFound, "room not found")
	ErrRoomUnauthorized = NewCodeError(RoomUnauthorized, "room access denied")
	ErrRoomAtCapacity   = NewCodeError(RoomAtCapacity, "room at capacity")
	ErrNotJoined        = NewCodeError(NotJoined, "not joined")
	ErrAlreadyJoined    = NewCodeError(AlreadyJoined, "already joined")
	ErrCommentNotFound  = NewCodeError(CommentNotFound, "comment not found")
	ErrCommentForbidden = NewCodeError(CommentForbidden, "comment not owned by caller")
	ErrStoreUnavailable = NewCodeError(StoreUnavailable, "store unavailable")
)
