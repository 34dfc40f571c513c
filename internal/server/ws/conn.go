// Package ws implements the realtime transport over gorilla/websocket: a
// transport.Conn per socket and the frame protocol served at /ws.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is one websocket connection. Writes are serialized; Close may be
// called from any goroutine and more than once.
type Conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	connected atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	c := &Conn{id: uuid.NewString(), ws: ws, writeTimeout: writeTimeout}
	c.connected.Store(true)
	return c
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) IsConnected() bool { return c.connected.Load() }

// Deliver pushes an event frame. The write is bounded by the earlier of
// ctx's deadline and the connection's write timeout.
func (c *Conn) Deliver(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	return c.writeFrame(ctx, Frame{Type: event, Payload: data})
}

// Close sends a close frame and tears the socket down.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *Conn) writeFrame(ctx context.Context, f Frame) error {
	if !c.connected.Load() {
		return fmt.Errorf("%w: connection %s is closed", common.ErrTransport, c.id)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.connected.Store(false)
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	return nil
}
