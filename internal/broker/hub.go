package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"eaglearn-be/internal/config"
	"eaglearn-be/internal/pkg/logger"
	"eaglearn-be/internal/repository/memory"
	"eaglearn-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "stream_events"

// Hub owns every live connection, grouped by channel name. Each connection
// carries its own lock; the hub lock only guards the registry itself so one
// slow peer never stalls fan-out to the rest.
type Hub struct {
	instanceID uuid.UUID

	mu       sync.RWMutex
	channels map[string]map[uuid.UUID]*Connection

	cfg    config.BrokerConfig
	resume *memory.ResumptionRepository

	// Redis connection for cross-instance fan-out, nil for single instance
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(cfg config.BrokerConfig, resume *memory.ResumptionRepository, rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		instanceID: uuid.New(),
		channels:   make(map[string]map[uuid.UUID]*Connection),
		cfg:        cfg,
		resume:     resume,
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}
	<-ctx.Done()
	h.closeAll()
}

// Connect registers a new connection on a channel and starts its writer and
// liveness loops. A valid resume token re-attaches the previous logical
// connection: same connection id, pre-disconnect queue contents replayed in
// order. Unknown or expired tokens fall through to a fresh connection.
func (h *Hub) Connect(channel string, sessionID uuid.UUID, resumeToken string, t Transport) (*Connection, bool) {
	resumed := false
	connID := uuid.New()
	var pending [][]byte

	if resumeToken != "" {
		if state, ok := h.resume.Claim(resumeToken); ok && state.Channel == channel {
			connID = state.ConnectionID
			sessionID = state.SessionID
			pending = state.Pending
			resumed = true
		}
	}

	conn := &Connection{
		ID:          connID,
		Channel:     channel,
		SessionID:   sessionID,
		ResumeToken: uuid.NewString(),
		hub:         h,
		queue:       newFrameQueue(h.cfg.QueueCapacity),
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		state:       StateConnecting,
	}
	// The peer needs its identity before anything else, ahead of any
	// replayed backlog. Enqueued before the writer starts so no broadcast
	// can slip in front of it.
	initial := NewFrame(events.TypeInitialState, map[string]interface{}{
		"connection_id": conn.ID,
		"resume_token":  conn.ResumeToken,
		"channel":       channel,
		"resumed":       resumed,
	})
	if data, err := initial.Encode(); err == nil {
		conn.queue.Push(data)
	}
	if len(pending) >= h.cfg.QueueCapacity {
		// a full backlog would evict the identity frame; drop the oldest
		// replayed frames instead
		pending = pending[len(pending)-h.cfg.QueueCapacity+1:]
	}
	for _, data := range pending {
		conn.queue.Push(data)
	}

	h.mu.Lock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[uuid.UUID]*Connection)
	}
	h.channels[channel][conn.ID] = conn
	h.mu.Unlock()

	conn.mu.Lock()
	conn.state = StateOpen
	conn.transport = t
	conn.lastAck = time.Now()
	conn.mu.Unlock()

	go conn.writePump(t)
	go conn.livenessLoop(t)
	conn.wake()

	h.logger.Info("Hub", "Connection opened", map[string]interface{}{
		"connection_id": conn.ID,
		"channel":       channel,
		"resumed":       resumed,
	})
	return conn, resumed
}

// Broadcast serializes the frame once and enqueues it on every open
// connection of the channel. It never blocks the caller; a full queue drops
// its oldest frame instead.
func (h *Hub) Broadcast(channel string, frame Frame) {
	data, err := frame.Encode()
	if err != nil {
		h.logger.Error("Hub", "Frame encode failed", map[string]interface{}{"error": err.Error()})
		return
	}
	h.broadcastLocal(channel, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"origin":  h.instanceID.String(),
			"channel": channel,
			"frame":   json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), clusterChannel, payload)
	}
}

// Send delivers a frame to a single connection, bypassing channel fan-out.
func (h *Hub) Send(conn *Connection, frame Frame) {
	data, err := frame.Encode()
	if err != nil {
		return
	}
	conn.enqueue(data)
}

func (h *Hub) broadcastLocal(channel string, data []byte) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.channels[channel]))
	for _, c := range h.channels[channel] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.enqueue(data)
	}
}

// connectionLost handles a transport failure: the connection leaves the
// fan-out set but its undelivered frames are parked under the resume token
// for the resumption window.
func (h *Hub) connectionLost(c *Connection, t Transport) {
	c.mu.Lock()
	if c.transport != t || c.state != StateOpen {
		c.mu.Unlock()
		return
	}
	c.state = StateReconnecting
	c.transport = nil
	token := c.ResumeToken
	c.mu.Unlock()

	t.Close()
	h.detach(c)
	close(c.done)

	// an undelivered identity frame carries a token the peer never saw;
	// the resuming connection mints its own
	pending := make([][]byte, 0)
	for _, data := range c.queue.Drain() {
		if frameType(data) == events.TypeInitialState {
			continue
		}
		pending = append(pending, data)
	}

	h.resume.Save(&memory.ResumeState{
		Token:        token,
		ConnectionID: c.ID,
		Channel:      c.Channel,
		SessionID:    c.SessionID,
		Pending:      pending,
		DroppedAt:    time.Now(),
	})

	h.logger.Warn("Hub", "Connection lost, resume state parked", map[string]interface{}{
		"connection_id": c.ID,
		"channel":       c.Channel,
	})
}

// CloseConnection is the clean shutdown path: no resume state is kept.
func (h *Hub) CloseConnection(c *Connection) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	t := c.transport
	c.transport = nil
	c.mu.Unlock()

	if t != nil {
		t.Close()
	}
	h.detach(c)
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	h.resume.Delete(c.ResumeToken)

	h.logger.Info("Hub", "Connection closed", map[string]interface{}{
		"connection_id": c.ID,
		"channel":       c.Channel,
	})
}

func (h *Hub) detach(c *Connection) {
	h.mu.Lock()
	if conns, ok := h.channels[c.Channel]; ok {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(h.channels, c.Channel)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0)
	for _, chans := range h.channels {
		for _, c := range chans {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.CloseConnection(c)
	}
}

// ConnectionCount reports open connections on one channel.
func (h *Hub) ConnectionCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			Origin  string          `json:"origin"`
			Channel string          `json:"channel"`
			Frame   json.RawMessage `json:"frame"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		// skip our own publications
		if payload.Origin == h.instanceID.String() {
			continue
		}
		h.broadcastLocal(payload.Channel, payload.Frame)
	}
}
