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

type CompositeScoreRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CompositeScoreMapper
}

func NewCompositeScoreRepository(db *gorm.DB) contract.CompositeScoreRepository {
	return &CompositeScoreRepositoryImpl{
		db:     db,
		mapper: mapper.NewCompositeScoreMapper(),
	}
}

func (r *CompositeScoreRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CompositeScoreRepositoryImpl) Create(ctx context.Context, score *entity.CompositeScore) error {
	m := r.mapper.ToModel(score)
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *CompositeScoreRepositoryImpl) DeleteAllBySessionIDUnscoped(ctx context.Context, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().
		Where("session_id = ?", sessionID).
		Delete(&model.CompositeScore{}).Error
}

func (r *CompositeScoreRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CompositeScore, error) {
	var models []*model.CompositeScore
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CompositeScoreRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.CompositeScore{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
