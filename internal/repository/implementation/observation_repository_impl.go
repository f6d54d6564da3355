package implementation

import (
	"context"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/mapper"
	"eaglearn-be/internal/model"
	"eaglearn-be/internal/repository/contract"
	"eaglearn-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ObservationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ObservationMapper
}

func NewObservationRepository(db *gorm.DB) contract.ObservationRepository {
	return &ObservationRepositoryImpl{
		db:     db,
		mapper: mapper.NewObservationMapper(),
	}
}

func (r *ObservationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ObservationRepositoryImpl) Create(ctx context.Context, obs *entity.Observation) error {
	m, err := r.mapper.ToModel(obs)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *ObservationRepositoryImpl) DeleteAllBySessionIDUnscoped(ctx context.Context, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("session_id = ?", sessionID).
		Delete(&model.Observation{}).Error
}

func (r *ObservationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Observation, error) {
	var models []*model.Observation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models)
}

func (r *ObservationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Observation{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
