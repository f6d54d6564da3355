package unitofwork

import (
	"context"

	"eaglearn-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	ObservationRepository() contract.ObservationRepository
	CompositeScoreRepository() contract.CompositeScoreRepository
	CalibrationRepository() contract.CalibrationRepository
}
