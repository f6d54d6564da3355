package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const maxMessageSize = 4096

// SessionCommands is what the broker needs from the ingest side: inbound
// submissions and session teardown, forwarded from the read loop.
type SessionCommands interface {
	SubmitObservation(ctx context.Context, sessionID uuid.UUID, family string, payload []float64, confidence float64, capturedAt time.Time) error
	EndSession(ctx context.Context, sessionID uuid.UUID) error
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type submitObservationData struct {
	Family     string    `json:"family"`
	Payload    []float64 `json:"payload"`
	Confidence float64   `json:"confidence"`
	CapturedAt time.Time `json:"captured_at"`
}

// wsTransport adapts a fiber websocket connection to the Transport
// interface. Writes are serialized because control pings and data frames
// come from different goroutines.
type wsTransport struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWsTransport(conn *websocket.Conn, writeTimeout time.Duration) *wsTransport {
	return &wsTransport{conn: conn, writeTimeout: writeTimeout}
}

func (t *wsTransport) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) WritePing() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// ServeWs runs one subscriber connection to completion. Query parameters:
// channel (required), session_id, resume_token.
func ServeWs(hub *Hub, commands SessionCommands, wsConn *websocket.Conn) {
	channel := wsConn.Query("channel")
	if channel == "" {
		wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "channel required"))
		wsConn.Close()
		return
	}
	sessionID, _ := uuid.Parse(wsConn.Query("session_id"))
	resumeToken := wsConn.Query("resume_token")

	transport := newWsTransport(wsConn, hub.cfg.WriteTimeout)
	conn, _ := hub.Connect(channel, sessionID, resumeToken, transport)

	readWait := hub.cfg.ProbeInterval + hub.cfg.ProbeTimeout
	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(time.Duration(hub.cfg.MaxMissedAcks) * readWait))
	wsConn.SetPongHandler(func(string) error {
		conn.Ack()
		wsConn.SetReadDeadline(time.Now().Add(time.Duration(hub.cfg.MaxMissedAcks) * readWait))
		return nil
	})

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				hub.CloseConnection(conn)
			} else {
				hub.connectionLost(conn, transport)
			}
			return
		}
		handleInbound(hub, commands, conn, raw)
	}
}

func handleInbound(hub *Hub, commands SessionCommands, conn *Connection, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		hub.Send(conn, NewFrame("validation_error", map[string]interface{}{
			"reason": "malformed message",
		}))
		return
	}

	ctx := context.Background()
	switch msg.Type {
	case "submit_observation":
		var data submitObservationData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			hub.Send(conn, NewFrame("validation_error", map[string]interface{}{
				"reason": "malformed observation",
			}))
			return
		}
		if err := commands.SubmitObservation(ctx, conn.SessionID, data.Family, data.Payload, data.Confidence, data.CapturedAt); err != nil {
			hub.Send(conn, NewFrame("validation_error", map[string]interface{}{
				"reason": err.Error(),
			}))
		}
	case "end_session":
		if err := commands.EndSession(ctx, conn.SessionID); err != nil {
			hub.Send(conn, NewFrame("validation_error", map[string]interface{}{
				"reason": err.Error(),
			}))
		}
	default:
		hub.Send(conn, NewFrame("validation_error", map[string]interface{}{
			"reason": "unknown message type: " + msg.Type,
		}))
	}
}
