package dto

import (
	"time"

	"github.com/google/uuid"
)

type SubmitObservationRequest struct {
	Family     string    `json:"family" validate:"required,oneof=gaze pose stress"`
	Payload    []float64 `json:"payload" validate:"required,min=1"`
	Confidence float64   `json:"confidence" validate:"min=0,max=1"`
	CapturedAt time.Time `json:"captured_at" validate:"required"`
}

type SubmitObservationResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// PublishObservationMessage is the pubsub payload carrying an accepted
// observation to the persistence consumer.
type PublishObservationMessage struct {
	Id         uuid.UUID `json:"id"`
	SessionId  uuid.UUID `json:"session_id"`
	Family     string    `json:"family"`
	CapturedAt time.Time `json:"captured_at"`
	Payload    []float64 `json:"payload"`
	Confidence float64   `json:"confidence"`
}

// PublishScoreMessage carries a closed window to the persistence consumer.
type PublishScoreMessage struct {
	Id                     uuid.UUID `json:"id"`
	SessionId              uuid.UUID `json:"session_id"`
	WindowStart            time.Time `json:"window_start"`
	WindowEnd              time.Time `json:"window_end"`
	FocusScore             float64   `json:"focus_score"`
	EngagementScore        float64   `json:"engagement_score"`
	StressScore            float64   `json:"stress_score"`
	PostureScore           float64   `json:"posture_score"`
	OverallScore           float64   `json:"overall_score"`
	ContributingConfidence float64   `json:"contributing_confidence"`
}
