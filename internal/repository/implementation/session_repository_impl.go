package implementation

import (
	"context"
	"errors"
	"time"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/mapper"
	"eaglearn-be/internal/model"
	"eaglearn-be/internal/pkg/crypto"
	"eaglearn-be/internal/repository/contract"
	"eaglearn-be/internal/repository/scope"
	"eaglearn-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB, cipher *crypto.FieldCipher) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(cipher),
	}
}

func (r *SessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	session.CreatedAt = m.CreatedAt
	return nil
}

func (r *SessionRepositoryImpl) Update(ctx context.Context, session *entity.Session) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *SessionRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	// Updates only rows not yet deleted, which keeps repeated sweeps
	// idempotent: the original deletion timestamp is never moved.
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
}

func (r *SessionRepositoryImpl) HardDeleteUnscoped(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&model.Session{}, id).Error
}

func (r *SessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error) {
	var m model.Session
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *SessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, []uuid.UUID, error) {
	return r.findAll(r.db.WithContext(ctx), specs...)
}

func (r *SessionRepositoryImpl) FindAllUnscoped(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, []uuid.UUID, error) {
	return r.findAll(r.db.WithContext(ctx).Scopes(scope.WithSoftDelete), specs...)
}

func (r *SessionRepositoryImpl) findAll(db *gorm.DB, specs ...specification.Specification) ([]*entity.Session, []uuid.UUID, error) {
	var models []*model.Session
	query := r.applySpecifications(db, specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, nil, err
	}
	return r.mapper.ToEntities(models)
}

func (r *SessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Session{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
