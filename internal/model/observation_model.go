package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Observation row. The numeric payload vector carries no direct identity and
// is stored clear so range queries stay cheap.
type Observation struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Family     string         `gorm:"type:varchar(10);not null;index"`
	CapturedAt time.Time      `gorm:"not null;index"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	Confidence float64        `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (Observation) TableName() string {
	return "observations"
}
