package contract

import (
	"context"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CompositeScoreRepository interface {
	Create(ctx context.Context, score *entity.CompositeScore) error
	DeleteAllBySessionIDUnscoped(ctx context.Context, sessionID uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CompositeScore, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
