package realtime

import (
	"sync"

	"github.com/lockstitch/courier/core"
)

// Transport is the write side of a live connection. Implementations must be
// safe for use from the connection's writer goroutine.
type Transport interface {
	Send(Frame) error
	Close() error
}

// sendQueueLen bounds the per-connection outbound queue. Pushes to a full
// queue are dropped so broadcasts never block the caller.
const sendQueueLen = 32

// Conn is an authenticated live connection bound to exactly one identity.
type Conn struct {
	Identifier string
	IdentityID string
	SessionID  string

	transport Transport
	queue     chan Frame
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	alive bool
}

func newConn(session *core.Session, t Transport) *Conn {
	return &Conn{
		Identifier: session.Identifier,
		IdentityID: session.IdentityID,
		SessionID:  session.ID,
		transport:  t,
		queue:      make(chan Frame, sendQueueLen),
		done:       make(chan struct{}),
		alive:      true,
	}
}

// push enqueues a frame without blocking; frames to a full queue are dropped.
func (c *Conn) push(f Frame) {
	select {
	case c.queue <- f:
	case <-c.done:
	default:
	}
}

// writeLoop pumps queued frames to the transport until the connection closes.
// onFail is invoked once if the transport write fails.
func (c *Conn) writeLoop(onFail func(*Conn)) {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.queue:
			if err := c.transport.Send(f); err != nil {
				onFail(c)
				return
			}
		}
	}
}

func (c *Conn) setAlive(v bool) {
	c.mu.Lock()
	c.alive = v
	c.mu.Unlock()
}

func (c *Conn) isAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// close terminates the connection and cancels its pending sends. Idempotent.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.transport.Close()
	})
}
