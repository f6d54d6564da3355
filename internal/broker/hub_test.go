package broker

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"eaglearn-be/internal/config"
	"eaglearn-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// fakeTransport records writes; it can be set to fail or stall.
type fakeTransport struct {
	mu       sync.Mutex
	messages [][]byte
	failing  bool
	stall    chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

func (t *fakeTransport) WriteMessage(data []byte) error {
	if t.stall != nil {
		<-t.stall
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing {
		return errors.New("transport gone")
	}
	t.messages = append(t.messages, data)
	return nil
}

func (t *fakeTransport) WritePing() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing {
		return errors.New("transport gone")
	}
	return nil
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) fail() {
	t.mu.Lock()
	t.failing = true
	t.mu.Unlock()
}

func (t *fakeTransport) received() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.messages))
	for _, m := range t.messages {
		var f Frame
		if err := json.Unmarshal(m, &f); err == nil {
			out = append(out, f.Type)
		}
	}
	return out
}

func testConfig() config.BrokerConfig {
	return config.BrokerConfig{
		QueueCapacity: 10,
		ProbeInterval: time.Hour, // liveness disabled unless a test shortens it
		ProbeTimeout:  time.Hour,
		MaxMissedAcks: 3,
		ResumeWindow:  5 * time.Minute,
		WriteTimeout:  time.Second,
		HighWatermark: 0.8,
		LowWatermark:  0.5,
	}
}

func newTestHub(cfg config.BrokerConfig) *Hub {
	return NewHub(cfg, memory.NewResumptionRepository(cfg.ResumeWindow), nil, nopLogger{})
}

func TestHubBroadcastFanOut(t *testing.T) {
	hub := newTestHub(testConfig())

	t1, t2, t3 := newFakeTransport(), newFakeTransport(), newFakeTransport()
	c1, _ := hub.Connect("scores", uuid.New(), "", t1)
	c2, _ := hub.Connect("scores", uuid.New(), "", t2)
	c3, _ := hub.Connect("lifecycle", uuid.New(), "", t3)
	defer hub.CloseConnection(c1)
	defer hub.CloseConnection(c2)
	defer hub.CloseConnection(c3)

	hub.Broadcast("scores", NewFrame("score_update", map[string]interface{}{"overall": 72.5}))

	assert.Eventually(t, func() bool {
		return len(t1.received()) == 2 && len(t2.received()) == 2
	}, time.Second, 10*time.Millisecond, "both channel subscribers should receive the frame")
	assert.Equal(t, []string{"initial_state", "score_update"}, t1.received())
	assert.Eventually(t, func() bool {
		return len(t3.received()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"initial_state"}, t3.received(), "other channels must not receive the frame")
}

func TestHubWriteFailureIsolation(t *testing.T) {
	hub := newTestHub(testConfig())

	bad, good := newFakeTransport(), newFakeTransport()
	cBad, _ := hub.Connect("scores", uuid.New(), "", bad)
	cGood, _ := hub.Connect("scores", uuid.New(), "", good)
	defer hub.CloseConnection(cGood)

	bad.fail()
	hub.Broadcast("scores", NewFrame("score_update", nil))
	hub.Broadcast("scores", NewFrame("score_update", nil))

	assert.Eventually(t, func() bool {
		return len(good.received()) == 3
	}, time.Second, 10*time.Millisecond, "healthy connection keeps receiving")
	assert.Equal(t, []string{"initial_state", "score_update", "score_update"}, good.received())

	assert.Eventually(t, func() bool {
		return cBad.State() == StateReconnecting
	}, time.Second, 10*time.Millisecond, "failed connection leaves the fan-out set")
	assert.Equal(t, 1, hub.ConnectionCount("scores"))
}

func TestHubResumptionReplaysPendingInOrder(t *testing.T) {
	hub := newTestHub(testConfig())

	stalled := newFakeTransport()
	stalled.stall = make(chan struct{})
	conn, resumed := hub.Connect("scores", uuid.New(), "", stalled)
	require.False(t, resumed)
	token := conn.ResumeToken
	originalID := conn.ID
	sessionID := conn.SessionID

	hub.Broadcast("scores", NewFrame("score_update", map[string]interface{}{"seq": 1}))
	hub.Broadcast("scores", NewFrame("state_update", map[string]interface{}{"seq": 2}))
	hub.Broadcast("scores", NewFrame("signal_lost", map[string]interface{}{"seq": 3}))

	// transport dies with everything still queued
	stalled.fail()
	close(stalled.stall)
	assert.Eventually(t, func() bool {
		return conn.State() == StateReconnecting
	}, time.Second, 10*time.Millisecond)

	replacement := newFakeTransport()
	resumedConn, resumedOK := hub.Connect("scores", uuid.Nil, token, replacement)
	defer hub.CloseConnection(resumedConn)

	require.True(t, resumedOK, "valid token within the window must resume")
	assert.Equal(t, originalID, resumedConn.ID, "logical connection identity survives")
	assert.Equal(t, sessionID, resumedConn.SessionID)

	assert.Eventually(t, func() bool {
		return len(replacement.received()) == 4
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"initial_state", "score_update", "state_update", "signal_lost"}, replacement.received(),
		"identity frame first, then the pending frames in original order")

	// the token minted before the drop was never delivered; only the
	// resumed connection's identity frame goes out
	replacement.mu.Lock()
	raw := replacement.messages[0]
	replacement.mu.Unlock()
	var identity Frame
	require.NoError(t, json.Unmarshal(raw, &identity))
	data, ok := identity.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, resumedConn.ResumeToken, data["resume_token"])
	assert.Equal(t, true, data["resumed"])
}

func TestHubUnknownTokenCreatesFreshConnection(t *testing.T) {
	hub := newTestHub(testConfig())

	tr := newFakeTransport()
	conn, resumed := hub.Connect("scores", uuid.New(), "no-such-token", tr)
	defer hub.CloseConnection(conn)

	assert.False(t, resumed)
	assert.Equal(t, StateOpen, conn.State())
}

func TestHubResumeTokenSingleUse(t *testing.T) {
	hub := newTestHub(testConfig())

	stalled := newFakeTransport()
	stalled.stall = make(chan struct{})
	conn, _ := hub.Connect("scores", uuid.New(), "", stalled)
	token := conn.ResumeToken
	stalled.fail()
	close(stalled.stall)
	hub.Broadcast("scores", NewFrame("score_update", nil))
	assert.Eventually(t, func() bool {
		return conn.State() == StateReconnecting
	}, time.Second, 10*time.Millisecond)

	first, firstOK := hub.Connect("scores", uuid.Nil, token, newFakeTransport())
	second, secondOK := hub.Connect("scores", uuid.Nil, token, newFakeTransport())
	defer hub.CloseConnection(first)
	defer hub.CloseConnection(second)

	assert.True(t, firstOK)
	assert.False(t, secondOK, "a claimed token never resumes twice")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestConnectionBackpressureHysteresis(t *testing.T) {
	cfg := testConfig()
	cfg.QueueCapacity = 10
	hub := newTestHub(cfg)

	stalled := newFakeTransport()
	stalled.stall = make(chan struct{})
	defer close(stalled.stall)
	conn, _ := hub.Connect("scores", uuid.New(), "", stalled)

	// Fill past the high watermark. The writer is stalled so nothing
	// leaves the queue.
	for i := 0; i < 9; i++ {
		hub.Broadcast("scores", NewFrame("score_update", map[string]interface{}{"seq": i}))
	}

	conn.mu.Lock()
	limited := conn.rateLimited
	conn.mu.Unlock()
	assert.True(t, limited, "crossing the high watermark sets rate_limited")

	queued := conn.queue.Len()

	// While suppressed, further broadcasts are discarded for this
	// connection rather than queued.
	hub.Broadcast("scores", NewFrame("score_update", nil))
	hub.Broadcast("scores", NewFrame("score_update", nil))
	assert.Equal(t, queued, conn.queue.Len(), "suppressed frames are not queued")

	// Drain below the low watermark, then delivery resumes.
	for conn.queue.Utilization() >= cfg.LowWatermark {
		conn.queue.Pop()
	}
	hub.Broadcast("scores", NewFrame("score_update", nil))

	conn.mu.Lock()
	limited = conn.rateLimited
	conn.mu.Unlock()
	assert.False(t, limited, "dropping below the low watermark clears rate_limited")
}

func TestConnectionLivenessTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ProbeInterval = 20 * time.Millisecond
	cfg.ProbeTimeout = 10 * time.Millisecond
	cfg.MaxMissedAcks = 3
	hub := newTestHub(cfg)

	// pings succeed but the peer never answers
	silent := newFakeTransport()
	conn, _ := hub.Connect("scores", uuid.New(), "", silent)

	assert.Eventually(t, func() bool {
		return conn.State() != StateOpen
	}, time.Second, 10*time.Millisecond, "three unanswered probes close the connection")
	assert.Equal(t, 0, hub.ConnectionCount("scores"))
}

func TestConnectionLateAckDiscarded(t *testing.T) {
	hub := newTestHub(testConfig())

	tr := newFakeTransport()
	conn, _ := hub.Connect("scores", uuid.New(), "", tr)
	hub.CloseConnection(conn)

	conn.Ack() // must not revive the closed connection
	assert.Equal(t, StateClosed, conn.State())
}
