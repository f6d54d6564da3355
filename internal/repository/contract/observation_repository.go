package contract

import (
	"context"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ObservationRepository interface {
	Create(ctx context.Context, obs *entity.Observation) error
	DeleteAllBySessionIDUnscoped(ctx context.Context, sessionID uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Observation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
