package mapper

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/model"
	"eaglearn-be/internal/pkg/crypto"
)

// SessionMapper converts between the domain entity and the GORM row,
// encrypting identity-bearing fields on the way in and decrypting on the
// way out. A decrypt failure propagates crypto.ErrTamperOrCorruption so the
// caller can exclude the record instead of returning it half-decrypted.
type SessionMapper struct {
	cipher *crypto.FieldCipher
}

func NewSessionMapper(cipher *crypto.FieldCipher) *SessionMapper {
	return &SessionMapper{cipher: cipher}
}

func (m *SessionMapper) ToEntity(s *model.Session) (*entity.Session, error) {
	if s == nil {
		return nil, nil
	}

	deviceInfo, err := m.cipher.Decrypt(s.DeviceInfo)
	if err != nil {
		return nil, err
	}
	osVersion, err := m.cipher.Decrypt(s.OSVersion)
	if err != nil {
		return nil, err
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.Session{
		Id:         s.Id,
		Status:     entity.SessionStatus(s.Status),
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		DeletedAt:  deletedAt,
		DeviceInfo: deviceInfo,
		OSVersion:  osVersion,
		CreatedAt:  s.CreatedAt,
	}, nil
}

func (m *SessionMapper) ToModel(s *entity.Session) (*model.Session, error) {
	if s == nil {
		return nil, nil
	}

	// Encryption failure aborts the write; the entity must never be
	// partially persisted with clear identity fields.
	deviceInfo, err := m.cipher.Encrypt(s.DeviceInfo)
	if err != nil {
		return nil, err
	}
	osVersion, err := m.cipher.Encrypt(s.OSVersion)
	if err != nil {
		return nil, err
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	}

	return &model.Session{
		Id:         s.Id,
		Status:     string(s.Status),
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		DeviceInfo: deviceInfo,
		OSVersion:  osVersion,
		CreatedAt:  s.CreatedAt,
		DeletedAt:  deletedAt,
	}, nil
}

// ToEntities skips rows whose envelopes fail authentication and returns
// their ids, so sweeps and list queries keep working around a corrupted
// record while the caller can still announce which sessions were affected.
func (m *SessionMapper) ToEntities(rows []*model.Session) ([]*entity.Session, []uuid.UUID, error) {
	entities := make([]*entity.Session, 0, len(rows))
	var excluded []uuid.UUID
	for _, row := range rows {
		e, err := m.ToEntity(row)
		if err != nil {
			if err == crypto.ErrTamperOrCorruption {
				// the primary key is stored in the clear, only the
				// encrypted fields are unreadable
				excluded = append(excluded, row.Id)
				continue
			}
			return nil, excluded, err
		}
		entities = append(entities, e)
	}
	return entities, excluded, nil
}
