package broker

import (
	"encoding/json"
	"time"

	"eaglearn-be/pkg/events"

	"github.com/google/uuid"
)

// Frame is one typed outbound message. Frames are serialized once at
// broadcast time so every connection on the channel shares the same bytes.
type Frame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewFrame(frameType string, data interface{}) Frame {
	return Frame{
		Type:      frameType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// SessionChannel names the broadcast group carrying one session's score and
// lifecycle frames.
func SessionChannel(sessionID uuid.UUID) string {
	return "session." + sessionID.String()
}

// frameType reads the type field out of encoded frame bytes.
func frameType(data []byte) string {
	var f struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return ""
	}
	return f.Type
}

// control frames originated by the broker itself
func rateLimitedFrame() Frame {
	return NewFrame(events.TypeRateLimited, map[string]interface{}{
		"reason": "outbound queue above high watermark",
	})
}
