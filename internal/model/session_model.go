package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session row. DeviceInfo and OSVersion hold base64 encryption envelopes
// (nonce||tag||ciphertext); they are never written in clear.
type Session struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Status     string         `gorm:"type:varchar(20);not null;default:'active';index"`
	StartedAt  time.Time      `gorm:"not null;index"`
	EndedAt    *time.Time     `gorm:"index"`
	DeviceInfo string         `gorm:"type:text"`
	OSVersion  string         `gorm:"type:text"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (Session) TableName() string {
	return "sessions"
}
