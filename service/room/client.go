package room

import (
	"sync"
	"time"

	"CProject/logger"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection's outbound side: a buffered queue
// consumed by a single writer goroutine. gorilla/websocket does not allow
// concurrent writes, so everything outbound (fan-out, replies, pings) goes
// through the queue.
type Client struct {
	connID string
	userID string

	ws   *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Client{
		connID: connID,
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.connID }

// Enqueue queues an outbound payload without blocking; false means dropped.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close makes the write pump send a close frame and tear the socket down.
// Safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

const firstPingDelay = 5 * time.Second

// WritePump drains the send queue and keeps the connection alive with pings.
// It owns the socket's write side: on any write error it closes the socket,
// which unblocks the session's read loop and triggers teardown.
func (c *Client) WritePump(pingInterval, writeWait time.Duration) {
	ticker := time.NewTicker(pingInterval)
	first := time.NewTimer(firstPingDelay)
	defer func() {
		ticker.Stop()
		first.Stop()

		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debugf("[WS] write err conn=%s user=%s err=%v", c.connID, c.userID, err)
				return
			}

		case <-first.C:
			if err := c.ping(writeWait); err != nil {
				logger.Debugf("[WS] first ping err conn=%s err=%v", c.connID, err)
				return
			}

		case <-ticker.C:
			if err := c.ping(writeWait); err != nil {
				logger.Debugf("[WS] ping err conn=%s user=%s err=%v", c.connID, c.userID, err)
				return
			}
		}
	}
}

func (c *Client) ping(writeWait time.Duration) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
}
