package ws

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avelis/collabd/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Conn wraps one websocket with a buffered outbound channel. TrySend
// never blocks; a full buffer drops the frame, which is the correct
// fate for ephemeral events headed to a slow reader.
type Conn struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	send     chan []byte

	mu     sync.RWMutex
	closed bool
}

func newConn(wsConn *websocket.Conn, identity domain.Identity, sendBuffer int) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		identity: identity,
		conn:     wsConn,
		send:     make(chan []byte, sendBuffer),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Identity() domain.Identity { return c.identity }

func (c *Conn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
