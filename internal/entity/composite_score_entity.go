package entity

import (
	"time"

	"github.com/google/uuid"
)

// Fixed convex weights for the overall score. The stress component enters
// inverted (calm contributes positively). Weights sum to 1.
const (
	WeightFocus      = 0.35
	WeightEngagement = 0.25
	WeightStress     = 0.20
	WeightPosture    = 0.20
)

// CompositeScore is one windowed fusion result. All component scores are in
// [0,100]. Never mutated after creation; superseded by the next window.
type CompositeScore struct {
	Id              uuid.UUID
	SessionId       uuid.UUID
	WindowStart     time.Time
	WindowEnd       time.Time
	FocusScore      float64
	EngagementScore float64
	StressScore     float64
	PostureScore    float64
	OverallScore    float64

	// ContributingConfidence is the arrival-count-weighted mean confidence
	// across the families that actually contributed to this window.
	ContributingConfidence float64

	CreatedAt time.Time
}
