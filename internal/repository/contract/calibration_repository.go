package contract

import (
	"context"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CalibrationRepository interface {
	Create(ctx context.Context, calibration *entity.Calibration) error
	Update(ctx context.Context, calibration *entity.Calibration) error
	// DeactivateAllByUserID clears the active flag on every calibration
	// owned by the user so a new one can become the single active profile.
	DeactivateAllByUserID(ctx context.Context, userID string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Calibration, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Calibration, int, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
