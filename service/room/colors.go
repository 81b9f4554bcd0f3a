package room

import "hash/fnv"

// cursorPalette is the fixed set of cursor label colors. A user with no
// client-supplied color always hashes to the same slot, so the color is
// stable across reconnects without persisting an assignment.
var cursorPalette = []string{
	"#E57373", "#F06292", "#BA68C8", "#9575CD",
	"#7986CB", "#64B5F6", "#4DD0E1", "#4DB6AC",
	"#81C784", "#AED581", "#FFB74D", "#FF8A65",
}

// ColorFor derives the deterministic cursor color for a user id.
func ColorFor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return cursorPalette[h.Sum32()%uint32(len(cursorPalette))]
}
