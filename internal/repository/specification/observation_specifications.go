package specification

import (
	"time"

	"eaglearn-be/internal/entity"

	"gorm.io/gorm"
)

type ByFamily struct {
	Family entity.SignalFamily
}

func (s ByFamily) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("family = ?", s.Family)
}

// CapturedBetween selects observations in the half-open interval
// [From, To).
type CapturedBetween struct {
	From time.Time
	To   time.Time
}

func (s CapturedBetween) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("captured_at >= ? AND captured_at < ?", s.From, s.To)
}

// WindowStartBetween selects score windows starting in [From, To).
type WindowStartBetween struct {
	From time.Time
	To   time.Time
}

func (s WindowStartBetween) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("window_start >= ? AND window_start < ?", s.From, s.To)
}
