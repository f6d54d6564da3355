package unitofwork

import (
	"context"

	"eaglearn-be/internal/pkg/crypto"

	"gorm.io/gorm"
)

type RepositoryFactoryImpl struct {
	db     *gorm.DB
	cipher *crypto.FieldCipher
}

func NewRepositoryFactory(db *gorm.DB, cipher *crypto.FieldCipher) RepositoryFactory {
	return &RepositoryFactoryImpl{
		db:     db,
		cipher: cipher,
	}
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	// A UoW is short lived, usually per request or per sweep run.
	return NewUnitOfWork(f.db, f.cipher)
}
