package room

import (
	"context"
	"time"

	"CProject/logger"
	"CProject/service/events"
	"CProject/service/store"
	"CProject/tools/errs"
)

// Config is the gateway's runtime configuration.
type Config struct {
	GatewayID     string
	SendQueueSize int
	PingInterval  time.Duration
	WriteWait     time.Duration
	MaxOccupancy  int // default per-room capacity; <=0 unlimited
}

func (c *Config) norm() {
	if c.GatewayID == "" {
		c.GatewayID = "collab_gw-1"
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
}

// ServerOptions wires the gateway's collaborators. Store is required; Auth
// defaults to the store-backed authorizer, Bridge and Cache are optional.
type ServerOptions struct {
	Conf   Config
	Gate   *Gate
	Store  store.RoomStore
	Auth   Authorizer
	Bridge *events.Bridge
	Cache  *store.SnapshotCache
}

// Server owns the shared coordination state: presence registry, throttle
// gate, broadcast router and hydrator. One session per client connection
// drives it; sessions from different connections run fully in parallel.
type Server struct {
	conf   Config
	reg    *Registry
	gate   *Gate
	router *Router
	hyd    *Hydrator
	store  store.RoomStore
	auth   Authorizer
	bridge *events.Bridge
	cache  *store.SnapshotCache
}

func NewServer(o ServerOptions) *Server {
	o.Conf.norm()
	reg := NewRegistry()
	gate := o.Gate
	if gate == nil {
		gate = NewGate(GateConf{})
	}
	auth := o.Auth
	if auth == nil {
		auth = NewStoreAuthorizer(o.Store, reg, o.Conf.MaxOccupancy)
	}
	return &Server{
		conf:   o.Conf,
		reg:    reg,
		gate:   gate,
		router: NewRouter(),
		hyd:    NewHydrator(reg, o.Store, o.Cache),
		store:  o.Store,
		auth:   auth,
		bridge: o.Bridge,
		cache:  o.Cache,
	}
}

func (s *Server) Registry() *Registry { return s.reg }

func (s *Server) Gate() *Gate { return s.gate }

func (s *Server) Router() *Router { return s.router }

// ResolveCommentSystem is the moderation path: the resolve is performed on
// behalf of the room, so the broadcast excludes nobody.
func (s *Server) ResolveCommentSystem(ctx context.Context, roomID, commentID string) (*store.Comment, error) {
	c, err := s.store.ResolveComment(ctx, roomID, commentID, "", true)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, roomID)
	s.router.PublishAll(roomID, EvtCommentResolved, commentPayload(c))
	s.bridge.PublishComment("resolved", roomID, commentID, "system")
	return c, nil
}

// ---- session state machine ----

type sessionState int

const (
	stateConnecting sessionState = iota
	stateJoined
	stateTerminated
)

// session is the per-connection gateway: it owns the Session for its
// lifetime and is the only goroutine dispatching that connection's inbound
// events, so events from one connection are handled strictly sequentially.
type session struct {
	srv   *Server
	sub   Subscriber
	ident Identity

	connID   string
	roomID   string
	state    sessionState
	joinedAt time.Time
}

// NewSession binds a connection's outbound queue to a fresh session in the
// connecting state.
func (s *Server) NewSession(connID string, ident Identity, sub Subscriber) *session {
	return &session{
		srv:    s,
		sub:    sub,
		ident:  ident,
		connID: connID,
		state:  stateConnecting,
	}
}

// HandleFrame dispatches one inbound frame. The returned bool is true when
// the session has terminated and the caller should stop reading.
func (ss *session) HandleFrame(ctx context.Context, f *Frame) bool {
	switch ss.state {
	case stateTerminated:
		return true
	case stateConnecting:
		if f.Event != EvtRoomJoin {
			ss.reply(BuildErrorFrame(f.Event, errs.ErrNotJoined.Wrap()))
			return false
		}
		return ss.handleJoin(ctx, f.Payload)
	}

	// joined
	switch f.Event {
	case EvtRoomJoin:
		ss.reply(BuildErrorFrame(f.Event, errs.ErrAlreadyJoined.Wrap()))
	case EvtRoomLeave:
		ss.Terminate()
		return true
	case EvtCursorUpdate:
		ss.handleCursor(f)
	case EvtSelectionUpdate:
		ss.handleSelection(f)
	case EvtPresenceUpdate:
		ss.handlePresenceUpdate(f)
	case EvtTypingStart, EvtTypingStop:
		ss.srv.router.Publish(ss.roomID, ss.connID, f.Event, typingPayload{UserID: ss.ident.UserID})
	case EvtCommentCreate:
		ss.handleCommentCreate(ctx, f)
	case EvtCommentUpdate:
		ss.handleCommentUpdate(ctx, f)
	case EvtCommentDelete:
		ss.handleCommentDelete(ctx, f)
	case EvtCommentResolve:
		ss.handleCommentResolve(ctx, f)
	default:
		ss.reply(BuildErrorFrame(f.Event, errs.ErrArgs.WrapMsg("unknown event")))
	}
	return false
}

func (ss *session) handleJoin(ctx context.Context, payload map[string]any) bool {
	p, err := parseJoin(payload)
	if err != nil {
		ss.reply(BuildErrorFrame(EvtRoomJoin, err))
		return false
	}

	// authorization is delegated; denial terminates before any state exists
	if _, err := ss.srv.auth.AuthorizeJoin(ctx, p.RoomID, ss.ident.UserID); err != nil {
		logger.Infof("[gateway] join denied room=%s user=%s err=%v", p.RoomID, ss.ident.UserID, err)
		ss.reply(BuildErrorFrame(EvtRoomJoin, err))
		ss.state = stateTerminated
		return true
	}

	meta := ss.joinMeta(p.Metadata)
	delta := ss.srv.reg.Join(p.RoomID, ss.ident.UserID, ss.connID, meta)

	snapshot, err := ss.srv.hyd.Hydrate(ctx, p.RoomID)
	if err != nil {
		// roll back: the session never reached joined
		ss.srv.reg.Leave(p.RoomID, ss.ident.UserID, ss.connID)
		ss.srv.gate.Cleanup(p.RoomID, ss.ident.UserID)
		logger.Errorf("[gateway] hydrate failed room=%s err=%v", p.RoomID, err)
		ss.reply(BuildErrorFrame(EvtRoomJoin, errs.ErrStoreUnavailable.Wrap()))
		ss.state = stateTerminated
		return true
	}

	ss.roomID = p.RoomID
	ss.state = stateJoined
	ss.joinedAt = time.Now()

	// snapshot reaches the client before any other inbound event is accepted
	ss.reply(BuildFrame(EvtPresenceState, presenceStatePayload{Presence: snapshot.Presence}))
	ss.reply(BuildFrame(EvtRoomState, snapshot))

	ss.srv.router.Subscribe(p.RoomID, ss.sub)

	switch delta.Kind {
	case DeltaJoined:
		ss.srv.router.Publish(p.RoomID, ss.connID, EvtPresenceJoined, deltaPayload(delta))
	case DeltaUpdated:
		// another device of the same user was already visible
		ss.srv.router.Publish(p.RoomID, ss.connID, EvtPresenceUpdated, deltaPayload(delta))
	}

	logger.Infof("[gateway] join room=%s user=%s conn=%s delta=%s", p.RoomID, ss.ident.UserID, ss.connID, delta.Kind)
	return false
}

// joinMeta folds the identity and client-supplied metadata, assigning the
// deterministic cursor color when none was supplied.
func (ss *session) joinMeta(supplied map[string]any) Meta {
	meta := Meta{}
	if ss.ident.Name != "" {
		meta["name"] = ss.ident.Name
	}
	if ss.ident.Avatar != "" {
		meta["avatar"] = ss.ident.Avatar
	}
	meta = meta.Merge(supplied)
	if _, ok := meta["color"]; !ok {
		meta["color"] = ColorFor(ss.ident.UserID)
	}
	return meta
}

func (ss *session) handleCursor(f *Frame) {
	p, err := parseCursor(f.Payload)
	if err != nil {
		ss.reply(BuildErrorFrame(f.Event, err))
		return
	}
	if !ss.srv.gate.Allow(ss.roomID, ss.ident.UserID) {
		return // throttled: silent drop, not an error
	}
	ss.srv.router.Publish(ss.roomID, ss.connID, EvtCursorUpdate, cursorPayload{
		UserID: ss.ident.UserID, X: p.X, Y: p.Y, ElementID: p.ElementID,
	})
}

func (ss *session) handleSelection(f *Frame) {
	p, err := parseSelection(f.Payload)
	if err != nil {
		ss.reply(BuildErrorFrame(f.Event, err))
		return
	}
	if !ss.srv.gate.Allow(ss.roomID, ss.ident.UserID) {
		return
	}
	ss.srv.router.Publish(ss.roomID, ss.connID, EvtSelectionUpdate, selectionPayload{
		UserID: ss.ident.UserID, Selection: p.Selection, ElementID: p.ElementID,
	})
}

func (ss *session) handlePresenceUpdate(f *Frame) {
	p, err := parsePresenceUpdate(f.Payload)
	if err != nil {
		ss.reply(BuildErrorFrame(f.Event, err))
		return
	}
	patch := Meta{}
	if p.Status != nil {
		patch["status"] = *p.Status
	}
	if p.CursorVisible != nil {
		patch["cursor_visible"] = *p.CursorVisible
	}
	if len(patch) == 0 {
		return
	}
	delta := ss.srv.reg.UpdateMeta(ss.roomID, ss.ident.UserID, patch)
	if delta == nil {
		return
	}
	ss.srv.router.Publish(ss.roomID, ss.connID, EvtPresenceUpdated, deltaPayload(delta))
}

func (ss *session) handleCommentCreate(ctx context.Context, f *Frame) {
	p, err := parseCommentCreate(f.Payload)
	if err != nil {
		ss.reply(BuildErrorFrame(f.Event, err))
		return
	}
	c, err := ss.srv.store.CreateComment(ctx, store.CommentInput{
		RoomID:     ss.roomID,
		AuthorID:   ss.ident.UserID,
		Body:       p.Body,
		AnchorID:   p.AnchorID,
		AnchorType: p.AnchorType,
		ParentID:   p.ParentID,
		Position:   p.Position,
	})
	if err != nil {
		ss.replyDelegateErr(f.Event, err)
		return
	}
	ss.afterCommentMutation(ctx, "created", EvtCommentCreated, commentPayload(c), c.ID)
}

func (ss *session) handleCommentUpdate(ctx context.Context, f *Frame) {
	p, err := parseCommentRef(f.Payload, true)
	if err != nil {
		ss.reply(BuildErrorFrame(f.Event, err))
		return
	}
	c, err := ss.srv.store.UpdateComment(ctx, ss.roomID, p.ID, ss.ident.UserID, p.Body)
	if err != nil {
		ss.replyDelegateErr(f.Event, err)
		return
	}
	ss.afterCommentMutation(ctx, "updated", EvtCommentUpdated, commentPayload(c), c.ID)
}

func (ss *session) handleCommentDelete(ctx context.Context, f *Frame) {
	p, err := parseCommentRef(f.Payload, false)
	if err != nil {
		ss.reply(BuildErrorFrame(f.Event, err))
		return
	}
	if err := ss.srv.store.DeleteComment(ctx, ss.roomID, p.ID, ss.ident.UserID); err != nil {
		ss.replyDelegateErr(f.Event, err)
		return
	}
	ss.afterCommentMutation(ctx, "deleted", EvtCommentDeleted, commentDeletedPayload{ID: p.ID}, p.ID)
}

func (ss *session) handleCommentResolve(ctx context.Context, f *Frame) {
	p, err := parseCommentRef(f.Payload, false)
	if err != nil {
		ss.reply(BuildErrorFrame(f.Event, err))
		return
	}
	c, err := ss.srv.store.ResolveComment(ctx, ss.roomID, p.ID, ss.ident.UserID, false)
	if err != nil {
		ss.replyDelegateErr(f.Event, err)
		return
	}
	ss.afterCommentMutation(ctx, "resolved", EvtCommentResolved, commentPayload(c), c.ID)
}

// afterCommentMutation runs only once the delegate call succeeded: cache
// invalidation, member fan-out (excluding the sender) and the integration
// event.
func (ss *session) afterCommentMutation(ctx context.Context, action, event string, payload any, commentID string) {
	ss.srv.cache.Invalidate(ctx, ss.roomID)
	ss.srv.router.Publish(ss.roomID, ss.connID, event, payload)
	ss.srv.bridge.PublishComment(action, ss.roomID, commentID, ss.ident.UserID)
}

// Terminate performs the ordered teardown. Idempotent; safe after any state.
// The session does not wait for fan-outs it already dispatched.
func (ss *session) Terminate() {
	if ss.state == stateTerminated {
		return
	}
	prev := ss.state
	ss.state = stateTerminated
	if prev != stateJoined {
		return
	}

	ss.srv.router.Unsubscribe(ss.roomID, ss.connID)
	delta := ss.srv.reg.Leave(ss.roomID, ss.ident.UserID, ss.connID)
	ss.srv.gate.Cleanup(ss.roomID, ss.ident.UserID)
	if delta != nil && delta.Kind == DeltaLeft {
		ss.srv.router.Publish(ss.roomID, ss.connID, EvtPresenceLeft, presenceLeftPayload{UserID: ss.ident.UserID})
	}
	logger.Infof("[gateway] leave room=%s user=%s conn=%s last=%v", ss.roomID, ss.ident.UserID, ss.connID, delta != nil)
}

func (ss *session) reply(payload []byte) {
	if payload == nil {
		return
	}
	if !ss.sub.Enqueue(payload) {
		logger.Debugf("[gateway] reply dropped conn=%s", ss.connID)
	}
}

// replyDelegateErr maps a failed store call to a scoped reply; nothing was
// broadcast, so no partial state reaches other members.
func (ss *session) replyDelegateErr(event string, err error) {
	logger.Warnf("[gateway] delegate failed event=%s room=%s err=%v", event, ss.roomID, err)
	if _, ok := errs.CodeOf(err); !ok {
		err = errs.ErrStoreUnavailable.Wrap()
	}
	ss.reply(BuildErrorFrame(event, err))
}

// ---- outbound payload shapes ----

type presenceStatePayload struct {
	Presence []PresenceEntry `json:"presence"`
}

type presenceLeftPayload struct {
	UserID string `json:"user_id"`
}

type typingPayload struct {
	UserID string `json:"user_id"`
}

type cursorPayload struct {
	UserID    string  `json:"user_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ElementID string  `json:"element_id,omitempty"`
}

type selectionPayload struct {
	UserID    string `json:"user_id"`
	Selection any    `json:"selection"`
	ElementID string `json:"element_id,omitempty"`
}

type commentDeletedPayload struct {
	ID string `json:"id"`
}

func commentPayload(c *store.Comment) any {
	return struct {
		Comment *store.Comment `json:"comment"`
	}{Comment: c}
}

func deltaPayload(d *PresenceDelta) any {
	return struct {
		UserID string `json:"user_id"`
		Meta   Meta   `json:"metadata"`
	}{UserID: d.UserID, Meta: d.Meta}
}
