package events

import (
	"encoding/json"
	"strings"
	"time"

	"CProject/logger"

	"github.com/nats-io/nats.go"
)

// Bridge publishes integration events to NATS after a comment mutation has
// been persisted, for downstream consumers (notification fan-out, search
// indexing). It is fire-and-forget: the requesting client has already been
// answered by the time a publish runs, and a publish failure is only logged.
//
// A nil *Bridge is valid and drops every publish, so callers never nil-check.
type Bridge struct {
	nc   *nats.Conn
	name string
}

type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

const subjectPrefix = "collab.comment."

func NewBridge(cfg Config) (*Bridge, error) {
	if len(cfg.Servers) == 0 {
		return nil, nil
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, err
	}
	return &Bridge{nc: nc, name: cfg.Name}, nil
}

// CommentEvent is the wire shape of an integration event.
type CommentEvent struct {
	Action  string `json:"action"` // created | updated | deleted | resolved
	RoomID  string `json:"room_id"`
	ID      string `json:"comment_id"`
	ActorID string `json:"actor_id"`
	TS      int64  `json:"ts"`
}

// PublishComment emits collab.comment.<action>.
func (b *Bridge) PublishComment(action, roomID, commentID, actorID string) {
	if b == nil || b.nc == nil {
		return
	}
	ev := CommentEvent{
		Action:  action,
		RoomID:  roomID,
		ID:      commentID,
		ActorID: actorID,
		TS:      time.Now().UnixMilli(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := b.nc.Publish(subjectPrefix+action, data); err != nil {
		logger.Warnf("[events] publish %s room=%s err=%v", action, roomID, err)
	}
}

func (b *Bridge) Close() {
	if b == nil || b.nc == nil {
		return
	}
	b.nc.Drain()
}
