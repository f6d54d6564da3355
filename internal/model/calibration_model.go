package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Calibration row. ScreenDimensions and CameraPosition hold encryption
// envelopes; the transform matrix is clear.
type Calibration struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId string    `gorm:"type:varchar(64);not null;index"`

	ScreenDimensions string         `gorm:"type:text;not null"`
	CameraPosition   string         `gorm:"type:text;not null"`
	TransformMatrix  datatypes.JSON `gorm:"type:jsonb"`
	AccuracyScore    *float64

	Status      string `gorm:"type:varchar(20);not null;default:'pending'"`
	IsActive    bool   `gorm:"default:true;index"`
	CompletedAt *time.Time
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Calibration) TableName() string {
	return "user_calibrations"
}
