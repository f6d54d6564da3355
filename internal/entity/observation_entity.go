package entity

import (
	"time"

	"github.com/google/uuid"
)

// SignalFamily tags which producer emitted an observation.
type SignalFamily string

const (
	FamilyGaze   SignalFamily = "gaze"
	FamilyPose   SignalFamily = "pose"
	FamilyStress SignalFamily = "stress"
)

// Valid reports whether f is one of the three known families.
func (f SignalFamily) Valid() bool {
	switch f {
	case FamilyGaze, FamilyPose, FamilyStress:
		return true
	}
	return false
}

// Observation is one timestamped reading from one signal family.
// Payload layout per family:
//
//	gaze:   [x, y]                normalized screen coordinates
//	pose:   [pitch, yaw, roll]    degrees
//	stress: [level]               0..1 stress level
//
// Immutable once created.
type Observation struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	Family     SignalFamily
	CapturedAt time.Time
	Payload    []float64
	Confidence float64
	CreatedAt  time.Time
}
