package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus follows the only valid lifecycle:
// active -> ended -> soft-deleted -> hard-deleted.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

type Session struct {
	Id        uuid.UUID
	Status    SessionStatus
	StartedAt time.Time
	EndedAt   *time.Time
	DeletedAt *time.Time

	// Identity-bearing fields, stored encrypted.
	DeviceInfo string
	OSVersion  string

	CreatedAt time.Time
}

// Active reports whether the session still accepts observations.
func (s *Session) Active() bool {
	return s.EndedAt == nil && s.DeletedAt == nil
}
