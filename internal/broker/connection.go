package broker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateOpen         ConnectionState = "open"
	StateReconnecting ConnectionState = "reconnecting"
	StateClosed       ConnectionState = "closed"
)

// Transport is the write side of one peer link. The concrete websocket
// adapter lives in handler.go; tests plug in fakes.
type Transport interface {
	WriteMessage(data []byte) error
	WritePing() error
	Close() error
}

// Connection is one logical duplex channel. It outlives a single transport:
// on a network drop the transport goes away but the connection can linger in
// reconnecting state until its resume token expires.
type Connection struct {
	ID          uuid.UUID
	Channel     string
	SessionID   uuid.UUID
	ResumeToken string

	hub   *Hub
	queue *frameQueue

	// notify wakes the writer without blocking the enqueuer
	notify chan struct{}
	done   chan struct{}

	mu          sync.Mutex
	state       ConnectionState
	transport   Transport
	lastAck     time.Time
	missedAcks  int
	rateLimited bool
}

func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) QueueOverflow() uint64 {
	return c.queue.Overflow()
}

// Ack records a liveness answer. Answers arriving after the connection left
// the open state are discarded, a stale timer must never revive it.
func (c *Connection) Ack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return
	}
	c.lastAck = time.Now()
	c.missedAcks = 0
}

// enqueue places serialized frame bytes on the outbound queue, applying the
// backpressure hysteresis. It never blocks.
func (c *Connection) enqueue(data []byte) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}

	if c.rateLimited {
		if c.queue.Utilization() >= c.hub.cfg.LowWatermark {
			// still suppressed
			c.mu.Unlock()
			return
		}
		c.rateLimited = false
	}
	c.mu.Unlock()

	c.queue.Push(data)

	c.mu.Lock()
	if !c.rateLimited && c.queue.Utilization() > c.hub.cfg.HighWatermark {
		c.rateLimited = true
		if encoded, err := rateLimitedFrame().Encode(); err == nil {
			c.queue.Push(encoded)
		}
	}
	c.mu.Unlock()

	c.wake()
}

func (c *Connection) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// writePump is the single consumer of the queue. It exits when the transport
// fails or the connection is torn down.
func (c *Connection) writePump(t Transport) {
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
		}

		for {
			c.mu.Lock()
			if c.transport != t || c.state != StateOpen {
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

			data, ok := c.queue.Peek()
			if !ok {
				break
			}
			if err := t.WriteMessage(data); err != nil {
				c.hub.connectionLost(c, t)
				return
			}
			c.queue.Advance()
		}
	}
}

// livenessLoop probes the peer on a fixed interval. A probe unanswered
// within the timeout counts as missed; enough of them closes the link.
func (c *Connection) livenessLoop(t Transport) {
	ticker := time.NewTicker(c.hub.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.transport != t || c.state != StateOpen {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		probedAt := time.Now()
		if err := t.WritePing(); err != nil {
			c.hub.connectionLost(c, t)
			return
		}

		timer := time.NewTimer(c.hub.cfg.ProbeTimeout)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		c.mu.Lock()
		if c.transport != t || c.state != StateOpen {
			c.mu.Unlock()
			return
		}
		if c.lastAck.Before(probedAt) {
			c.missedAcks++
			if c.missedAcks >= c.hub.cfg.MaxMissedAcks {
				c.mu.Unlock()
				c.hub.connectionLost(c, t)
				return
			}
		}
		c.mu.Unlock()
	}
}
