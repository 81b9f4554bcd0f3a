package room

import (
	"encoding/json"

	"CProject/logger"
	"CProject/tools/decode"
	"CProject/tools/errs"
)

// Frame is the wire envelope: {"event": "...", "payload": {...}}.
type Frame struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.ErrArgs.WrapMsg("unmarshal frame", "err", err)
	}
	if f.Event == "" {
		return nil, errs.ErrArgs.WrapMsg("event missing")
	}
	return &f, nil
}

// BuildFrame marshals an outbound frame once; fan-out reuses the bytes.
func BuildFrame(event string, payload any) []byte {
	data, err := json.Marshal(struct {
		Event   string `json:"event"`
		Payload any    `json:"payload,omitempty"`
	}{Event: event, Payload: payload})
	if err != nil {
		// payloads are built from our own types; this does not happen in practice
		logger.Errorf("[frames] marshal %s: %v", event, err)
		return nil
	}
	return data
}

// ErrorReply is the scoped error payload answered to the requesting
// connection only.
type ErrorReply struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
	Event  string `json:"event,omitempty"` // the inbound event being answered
}

func BuildErrorFrame(event string, err error) []byte {
	codeErr, ok := errs.CodeOf(err)
	if !ok {
		codeErr = errs.ErrInternal
	}
	return BuildFrame(EvtError, ErrorReply{
		Code:   codeErr.Code,
		Reason: codeErr.Msg,
		Event:  event,
	})
}

// ---- inbound payloads ----

type JoinPayload struct {
	RoomID   string         `json:"room_id"`
	Metadata map[string]any `json:"metadata"`
}

type CursorUpdate struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ElementID string  `json:"element_id,omitempty"`
}

type SelectionUpdate struct {
	Selection any    `json:"selection"`
	ElementID string `json:"element_id,omitempty"`
}

type PresenceUpdate struct {
	Status        *string `json:"status"`
	CursorVisible *bool   `json:"cursor_visible"`
}

type CommentCreate struct {
	Body       string         `json:"body"`
	AnchorID   string         `json:"anchor_id,omitempty"`
	AnchorType string         `json:"anchor_type,omitempty"`
	Position   map[string]any `json:"position,omitempty"`
	ParentID   string         `json:"parent_id,omitempty"`
}

type CommentRef struct {
	ID   string `json:"id"`
	Body string `json:"body,omitempty"` // required for comment:update only
}

func parseJoin(payload map[string]any) (*JoinPayload, error) {
	if err := decode.Require(payload, "room_id"); err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	p, err := decode.DecodeMap[JoinPayload](payload)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	if p.RoomID == "" {
		return nil, errs.ErrArgs.WrapMsg("room_id empty")
	}
	return p, nil
}

func parseCursor(payload map[string]any) (*CursorUpdate, error) {
	if err := decode.Require(payload, "x", "y"); err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	p, err := decode.DecodeMap[CursorUpdate](payload)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	return p, nil
}

func parseSelection(payload map[string]any) (*SelectionUpdate, error) {
	if err := decode.Require(payload, "selection"); err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	p, err := decode.DecodeMap[SelectionUpdate](payload)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	return p, nil
}

func parsePresenceUpdate(payload map[string]any) (*PresenceUpdate, error) {
	// both fields are optional; an absent payload is an empty patch
	if payload == nil {
		return &PresenceUpdate{}, nil
	}
	p, err := decode.DecodeMap[PresenceUpdate](payload)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	return p, nil
}

func parseCommentCreate(payload map[string]any) (*CommentCreate, error) {
	if err := decode.Require(payload, "body"); err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	p, err := decode.DecodeMap[CommentCreate](payload)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	if p.Body == "" {
		return nil, errs.ErrArgs.WrapMsg("body empty")
	}
	return p, nil
}

func parseCommentRef(payload map[string]any, needBody bool) (*CommentRef, error) {
	if err := decode.Require(payload, "id"); err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	p, err := decode.DecodeMap[CommentRef](payload)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	if p.ID == "" {
		return nil, errs.ErrArgs.WrapMsg("id empty")
	}
	if needBody && p.Body == "" {
		return nil, errs.ErrArgs.WrapMsg("body empty")
	}
	return p, nil
}
