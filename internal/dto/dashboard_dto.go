package dto

import (
	"time"

	"github.com/google/uuid"
)

type ScoreItem struct {
	WindowStart            time.Time `json:"window_start"`
	WindowEnd              time.Time `json:"window_end"`
	FocusScore             float64   `json:"focus_score"`
	EngagementScore        float64   `json:"engagement_score"`
	StressScore            float64   `json:"stress_score"`
	PostureScore           float64   `json:"posture_score"`
	OverallScore           float64   `json:"overall_score"`
	ContributingConfidence float64   `json:"contributing_confidence"`
}

type SessionSummaryResponse struct {
	SessionId      uuid.UUID   `json:"session_id"`
	WindowCount    int         `json:"window_count"`
	AvgFocus       float64     `json:"avg_focus"`
	AvgEngagement  float64     `json:"avg_engagement"`
	AvgStress      float64     `json:"avg_stress"`
	AvgPosture     float64     `json:"avg_posture"`
	AvgOverall     float64     `json:"avg_overall"`
	Scores         []ScoreItem `json:"scores"`
	ObservationCnt int64       `json:"observation_count"`
}
