package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps a gorilla connection behind the registry's Conn interface.
// gorilla permits one concurrent writer, so writes serialize on a mutex, and
// every write carries a deadline so a stalled peer fails instead of blocking.
type wsConn struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

func newWSConn(conn *websocket.Conn, timeout time.Duration) *wsConn {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &wsConn{conn: conn, timeout: timeout}
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ReadJSON(v any) error {
	return c.conn.ReadJSON(v)
}

func (c *wsConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

// CloseWith sends a close frame with the given code and reason before
// dropping the connection.
func (c *wsConn) CloseWith(code int, reason string) error {
	c.mu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
