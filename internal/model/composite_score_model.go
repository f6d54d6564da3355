package model

import (
	"time"

	"github.com/google/uuid"
)

type CompositeScore struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId   uuid.UUID `gorm:"type:uuid;not null;index"`
	WindowStart time.Time `gorm:"not null;index"`
	WindowEnd   time.Time `gorm:"not null"`

	FocusScore      float64 `gorm:"not null"`
	EngagementScore float64 `gorm:"not null"`
	StressScore     float64 `gorm:"not null"`
	PostureScore    float64 `gorm:"not null"`
	OverallScore    float64 `gorm:"not null"`

	ContributingConfidence float64 `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CompositeScore) TableName() string {
	return "composite_scores"
}
