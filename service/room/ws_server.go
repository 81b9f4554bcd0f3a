package room

import (
	"context"
	"net/http"
	"time"

	"CProject/logger"
	"CProject/middleware/security"
	"CProject/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// origin policy is enforced at the edge, not here
	CheckOrigin: func(r *http.Request) bool { return true },
}

const pongWait = 60 * time.Second

// HandleWS upgrades the HTTP request and runs the connection's read loop
// until the peer disconnects or the session terminates. One goroutine reads,
// one (the write pump) writes.
func (s *Server) HandleWS(c *gin.Context) {
	id, ok := security.IdentityFrom(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("[WS] upgrade failed user=%s err=%v", id.UserID, err)
		return
	}

	connID := ids.GenerateConnRef()
	client := NewClient(connID, id.UserID, ws, s.conf.SendQueueSize)
	go client.WritePump(s.conf.PingInterval, s.conf.WriteWait)

	sess := s.NewSession(connID, Identity{
		UserID: id.UserID,
		Name:   id.Name,
		Avatar: id.Avatar,
	}, client)

	logger.Infof("[WS] connected conn=%s user=%s", connID, id.UserID)
	s.readLoop(c.Request.Context(), ws, client, sess)
}

func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, client *Client, sess *session) {
	defer func() {
		sess.Terminate()
		client.Close()
	}()

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Infof("[WS] read err conn=%s err=%v", client.ID(), err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrame(raw)
		if err != nil {
			if payload := BuildErrorFrame("", err); payload != nil {
				client.Enqueue(payload)
			}
			continue
		}
		if done := sess.HandleFrame(ctx, frame); done {
			return
		}
	}
}
