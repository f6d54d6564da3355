package unitofwork

import (
	"context"
	"fmt"

	"eaglearn-be/internal/pkg/crypto"
	"eaglearn-be/internal/repository/contract"
	"eaglearn-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db     *gorm.DB
	tx     *gorm.DB // active transaction, nil outside Begin/Commit
	cipher *crypto.FieldCipher
}

func NewUnitOfWork(db *gorm.DB, cipher *crypto.FieldCipher) UnitOfWork {
	return &UnitOfWorkImpl{
		db:     db,
		cipher: cipher,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) SessionRepository() contract.SessionRepository {
	return implementation.NewSessionRepository(u.getDB(), u.cipher)
}

func (u *UnitOfWorkImpl) ObservationRepository() contract.ObservationRepository {
	return implementation.NewObservationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) CompositeScoreRepository() contract.CompositeScoreRepository {
	return implementation.NewCompositeScoreRepository(u.getDB())
}

func (u *UnitOfWorkImpl) CalibrationRepository() contract.CalibrationRepository {
	return implementation.NewCalibrationRepository(u.getDB(), u.cipher)
}
