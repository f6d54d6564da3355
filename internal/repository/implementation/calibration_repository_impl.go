package implementation

import (
	"context"
	"errors"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/mapper"
	"eaglearn-be/internal/model"
	"eaglearn-be/internal/pkg/crypto"
	"eaglearn-be/internal/repository/contract"
	"eaglearn-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CalibrationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CalibrationMapper
}

func NewCalibrationRepository(db *gorm.DB, cipher *crypto.FieldCipher) contract.CalibrationRepository {
	return &CalibrationRepositoryImpl{
		db:     db,
		mapper: mapper.NewCalibrationMapper(cipher),
	}
}

func (r *CalibrationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CalibrationRepositoryImpl) Create(ctx context.Context, calibration *entity.Calibration) error {
	m, err := r.mapper.ToModel(calibration)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *CalibrationRepositoryImpl) Update(ctx context.Context, calibration *entity.Calibration) error {
	m, err := r.mapper.ToModel(calibration)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *CalibrationRepositoryImpl) DeactivateAllByUserID(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Calibration{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}

func (r *CalibrationRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Calibration{}, id).Error
}

func (r *CalibrationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Calibration, error) {
	var m model.Calibration
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *CalibrationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Calibration, int, error) {
	var models []*model.Calibration
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, err
	}

	entities := make([]*entity.Calibration, 0, len(models))
	excluded := 0
	for _, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			if errors.Is(err, crypto.ErrTamperOrCorruption) {
				excluded++
				continue
			}
			return nil, excluded, err
		}
		entities = append(entities, e)
	}
	return entities, excluded, nil
}

func (r *CalibrationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Calibration{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
