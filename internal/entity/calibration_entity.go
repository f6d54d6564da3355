package entity

import (
	"time"

	"github.com/google/uuid"
)

type CalibrationStatus string

const (
	CalibrationPending   CalibrationStatus = "pending"
	CalibrationCompleted CalibrationStatus = "completed"
)

// Calibration stores per-user gaze calibration metadata. Screen dimensions
// and camera position can fingerprint a workplace setup, so both are stored
// encrypted; the transform matrix itself carries no identity and stays clear
// for fast loading.
type Calibration struct {
	Id     uuid.UUID
	UserId string

	ScreenDimensions string
	CameraPosition   string
	TransformMatrix  []float64
	AccuracyScore    *float64

	Status      CalibrationStatus
	IsActive    bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	DeletedAt   *time.Time
}
