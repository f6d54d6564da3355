package contract

import (
	"context"
	"time"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	Update(ctx context.Context, session *entity.Session) error
	// SoftDelete marks the session deleted at the given instant. Already
	// deleted sessions are left untouched.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	// HardDeleteUnscoped removes the session row permanently. Child rows
	// must be removed first.
	HardDeleteUnscoped(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error)
	// FindAll returns the decryptable sessions and the ids of rows
	// excluded because their encrypted fields failed authentication.
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, []uuid.UUID, error)
	// FindAllUnscoped is FindAll without the soft-delete filter.
	FindAllUnscoped(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, []uuid.UUID, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
