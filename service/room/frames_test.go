package room

import (
	"encoding/json"
	"testing"

	"CProject/tools/errs"
)

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte(`{"event":"cursor:update","payload":{"x":10,"y":20}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Event != EvtCursorUpdate {
		t.Fatalf("event = %q", f.Event)
	}

	if _, err := ParseFrame([]byte(`not json`)); !errs.ErrArgs.Is(err) {
		t.Fatalf("malformed json: want args error, got %v", err)
	}
	if _, err := ParseFrame([]byte(`{"payload":{}}`)); !errs.ErrArgs.Is(err) {
		t.Fatalf("missing event: want args error, got %v", err)
	}
}

func TestParseCursorRequiresCoordinates(t *testing.T) {
	if _, err := parseCursor(map[string]any{"x": 1.0}); !errs.ErrArgs.Is(err) {
		t.Fatalf("missing y: want args error, got %v", err)
	}
	p, err := parseCursor(map[string]any{"x": 1.5, "y": 2.5, "element_id": "n1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.X != 1.5 || p.Y != 2.5 || p.ElementID != "n1" {
		t.Fatalf("parsed = %+v", p)
	}
}

func TestParseJoin(t *testing.T) {
	if _, err := parseJoin(map[string]any{}); !errs.ErrArgs.Is(err) {
		t.Fatalf("missing room_id: want args error, got %v", err)
	}
	p, err := parseJoin(map[string]any{"room_id": "r1", "metadata": map[string]any{"name": "A"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.RoomID != "r1" || p.Metadata["name"] != "A" {
		t.Fatalf("parsed = %+v", p)
	}
}

func TestParsePresenceUpdateOptionalFields(t *testing.T) {
	// both fields optional: a bare frame is a valid empty patch
	p, err := parsePresenceUpdate(nil)
	if err != nil {
		t.Fatalf("nil payload: %v", err)
	}
	if p.Status != nil || p.CursorVisible != nil {
		t.Fatalf("empty patch = %+v", p)
	}

	p, err = parsePresenceUpdate(map[string]any{"status": "away"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Status == nil || *p.Status != "away" || p.CursorVisible != nil {
		t.Fatalf("parsed = %+v", p)
	}
}

func TestParseCommentPayloads(t *testing.T) {
	if _, err := parseCommentCreate(map[string]any{"anchor_id": "n1"}); !errs.ErrArgs.Is(err) {
		t.Fatalf("missing body: want args error, got %v", err)
	}
	if _, err := parseCommentRef(map[string]any{"body": "x"}, true); !errs.ErrArgs.Is(err) {
		t.Fatalf("missing id: want args error, got %v", err)
	}
	if _, err := parseCommentRef(map[string]any{"id": "k1"}, true); !errs.ErrArgs.Is(err) {
		t.Fatalf("update without body: want args error, got %v", err)
	}
	if _, err := parseCommentRef(map[string]any{"id": "k1"}, false); err != nil {
		t.Fatalf("delete needs only id: %v", err)
	}
}

func TestBuildErrorFrame(t *testing.T) {
	raw := BuildErrorFrame(EvtRoomJoin, errs.ErrRoomAtCapacity.Wrap())
	var f struct {
		Event   string     `json:"event"`
		Payload ErrorReply `json:"payload"`
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Event != EvtError {
		t.Fatalf("event = %q", f.Event)
	}
	if f.Payload.Code != errs.RoomAtCapacity || f.Payload.Event != EvtRoomJoin {
		t.Fatalf("payload = %+v", f.Payload)
	}

	// non-coded errors collapse to internal
	raw = BuildErrorFrame("", errs.New("boom"))
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Payload.Code != errs.ServerInternalError {
		t.Fatalf("code = %d", f.Payload.Code)
	}
}

func TestColorDeterministic(t *testing.T) {
	if ColorFor("alice") != ColorFor("alice") {
		t.Fatalf("color must be stable per user")
	}
	found := false
	for _, c := range cursorPalette {
		if c == ColorFor("alice") {
			found = true
		}
	}
	if !found {
		t.Fatalf("color %q not from the palette", ColorFor("alice"))
	}
}
