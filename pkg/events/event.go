package events

import "time"

// Event type codes used across the broker, the fusion pipeline and the
// NATS mirror. Subscribers switch on these, so they are part of the wire
// contract and must stay stable.
const (
	TypeInitialState       = "initial_state"
	TypeStateUpdate        = "state_update"
	TypeScoreUpdate        = "score_update"
	TypeSignalLost         = "signal_lost"
	TypeRateLimited        = "rate_limited"
	TypeTamperOrCorruption = "tamper_or_corruption"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "score_update").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
