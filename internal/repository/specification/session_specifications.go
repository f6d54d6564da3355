package specification

import (
	"time"

	"eaglearn-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID uuid.UUID
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByStatus struct {
	Status entity.SessionStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// EndedBefore selects sessions that ended strictly before the cutoff.
// Sessions exactly at the cutoff are not yet due.
type EndedBefore struct {
	Cutoff time.Time
}

func (s EndedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("ended_at IS NOT NULL AND ended_at < ?", s.Cutoff)
}

// SoftDeletedBefore selects already soft-deleted sessions whose deletion
// happened strictly before the cutoff. Callers must run Unscoped.
type SoftDeletedBefore struct {
	Cutoff time.Time
}

func (s SoftDeletedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NOT NULL AND deleted_at < ?", s.Cutoff)
}
