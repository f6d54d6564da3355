package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartCalibrationRequest struct {
	UserId           string `json:"user_id" validate:"required"`
	ScreenDimensions string `json:"screen_dimensions" validate:"required"`
	CameraPosition   string `json:"camera_position"`
}

type StartCalibrationResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type CompleteCalibrationRequest struct {
	Id              uuid.UUID `json:"-"`
	TransformMatrix []float64 `json:"transform_matrix" validate:"required,min=1"`
	AccuracyScore   float64   `json:"accuracy_score" validate:"min=0,max=1"`
}

type ShowCalibrationResponse struct {
	Id               uuid.UUID  `json:"id"`
	UserId           string     `json:"user_id"`
	ScreenDimensions string     `json:"screen_dimensions"`
	CameraPosition   string     `json:"camera_position"`
	TransformMatrix  []float64  `json:"transform_matrix"`
	AccuracyScore    *float64   `json:"accuracy_score"`
	Status           string     `json:"status"`
	IsActive         bool       `json:"is_active"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
}
