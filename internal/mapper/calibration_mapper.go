package mapper

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/model"
	"eaglearn-be/internal/pkg/crypto"
)

type CalibrationMapper struct {
	cipher *crypto.FieldCipher
}

func NewCalibrationMapper(cipher *crypto.FieldCipher) *CalibrationMapper {
	return &CalibrationMapper{cipher: cipher}
}

func (m *CalibrationMapper) ToEntity(c *model.Calibration) (*entity.Calibration, error) {
	if c == nil {
		return nil, nil
	}

	screen, err := m.cipher.Decrypt(c.ScreenDimensions)
	if err != nil {
		return nil, err
	}
	camera, err := m.cipher.Decrypt(c.CameraPosition)
	if err != nil {
		return nil, err
	}

	var matrix []float64
	if len(c.TransformMatrix) > 0 {
		if err := json.Unmarshal(c.TransformMatrix, &matrix); err != nil {
			return nil, err
		}
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.Calibration{
		Id:               c.Id,
		UserId:           c.UserId,
		ScreenDimensions: screen,
		CameraPosition:   camera,
		TransformMatrix:  matrix,
		AccuracyScore:    c.AccuracyScore,
		Status:           entity.CalibrationStatus(c.Status),
		IsActive:         c.IsActive,
		CompletedAt:      c.CompletedAt,
		CreatedAt:        c.CreatedAt,
		DeletedAt:        deletedAt,
	}, nil
}

func (m *CalibrationMapper) ToModel(c *entity.Calibration) (*model.Calibration, error) {
	if c == nil {
		return nil, nil
	}

	screen, err := m.cipher.Encrypt(c.ScreenDimensions)
	if err != nil {
		return nil, err
	}
	camera, err := m.cipher.Encrypt(c.CameraPosition)
	if err != nil {
		return nil, err
	}

	matrix, err := json.Marshal(c.TransformMatrix)
	if err != nil {
		return nil, err
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	}

	return &model.Calibration{
		Id:               c.Id,
		UserId:           c.UserId,
		ScreenDimensions: screen,
		CameraPosition:   camera,
		TransformMatrix:  datatypes.JSON(matrix),
		AccuracyScore:    c.AccuracyScore,
		Status:           string(c.Status),
		IsActive:         c.IsActive,
		CompletedAt:      c.CompletedAt,
		CreatedAt:        c.CreatedAt,
		DeletedAt:        deletedAt,
	}, nil
}
