package moderation

import (
	"errors"
	"net/http"

	"CProject/service/room"
	"CProject/tools/errs"

	"github.com/gin-gonic/gin"
)

// Handler exposes the moderation surface: operations performed on behalf of
// the room rather than a connected member.
type Handler struct {
	srv *room.Server
}

func NewHandler(srv *room.Server) *Handler {
	return &Handler{srv: srv}
}

// Register mounts the moderation routes on the given group.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/rooms/:room_id/comments/:comment_id/resolve", h.resolveComment)
}

// resolveComment resolves a comment with system authority. Connected room
// members receive comment:resolved; no member is excluded from the fan-out.
func (h *Handler) resolveComment(c *gin.Context) {
	roomID := c.Param("room_id")
	commentID := c.Param("comment_id")
	if roomID == "" || commentID == "" {
		c.JSON(http.StatusBadRequest, errs.ErrArgs)
		return
	}

	comment, err := h.srv.ResolveCommentSystem(c.Request.Context(), roomID, commentID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, errs.ErrCommentNotFound):
			status = http.StatusNotFound
		case errors.Is(err, errs.ErrStoreUnavailable):
			status = http.StatusServiceUnavailable
		}
		codeErr, ok := errs.CodeOf(err)
		if !ok {
			codeErr = errs.ErrInternal
		}
		c.JSON(status, codeErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment": comment})
}
