// Package transporttest provides an in-memory transport.Conn for tests.
package transporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophrelay/internal/common"
)

// Delivery is one recorded Deliver call.
type Delivery struct {
	Event   string
	Payload any
}

// Conn records deliveries. Failing delivery can be switched on wholesale
// with SetFail or after a number of successful deliveries with FailAfter.
type Conn struct {
	id string

	mu         sync.Mutex
	connected  bool
	closed     int
	fail       bool
	failAfter  int
	deliveries []Delivery
	onDeliver  func(Delivery)
}

// NewConn returns a connected fake with the given id.
func NewConn(id string) *Conn {
	return &Conn{id: id, connected: true, failAfter: -1}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Conn) Deliver(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}

	c.mu.Lock()
	if !c.connected || c.fail || c.failAfter == 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: conn %s refused %s", common.ErrTransport, c.id, event)
	}
	if c.failAfter > 0 {
		c.failAfter--
	}
	d := Delivery{Event: event, Payload: payload}
	c.deliveries = append(c.deliveries, d)
	hook := c.onDeliver
	c.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.closed++
	return nil
}

// SetFail makes every following Deliver fail (or succeed again).
func (c *Conn) SetFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

// FailAfter lets n more deliveries succeed, then fails the rest.
func (c *Conn) FailAfter(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAfter = n
}

// SetConnected flips the connected flag without counting a Close.
func (c *Conn) SetConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}

// OnDeliver registers a hook run after each successful delivery.
func (c *Conn) OnDeliver(fn func(Delivery)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDeliver = fn
}

// Deliveries returns a copy of the recorded deliveries.
func (c *Conn) Deliveries() []Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Delivery(nil), c.deliveries...)
}

// Events returns the recorded deliveries with the given event name.
func (c *Conn) Events(event string) []Delivery {
	var out []Delivery
	for _, d := range c.Deliveries() {
		if d.Event == event {
			out = append(out, d)
		}
	}
	return out
}

// Closed reports how many times Close was called.
func (c *Conn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
