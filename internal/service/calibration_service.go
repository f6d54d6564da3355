package service

import (
	"context"
	"errors"
	"time"

	"eaglearn-be/internal/dto"
	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/repository/specification"
	"eaglearn-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

var (
	ErrCalibrationNotFound  = errors.New("calibration not found")
	ErrCalibrationCompleted = errors.New("calibration already completed")
)

type ICalibrationService interface {
	Start(ctx context.Context, req *dto.StartCalibrationRequest) (*dto.StartCalibrationResponse, error)
	Complete(ctx context.Context, req *dto.CompleteCalibrationRequest) (*dto.ShowCalibrationResponse, error)
	ShowActive(ctx context.Context, userID string) (*dto.ShowCalibrationResponse, error)
}

type calibrationService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewCalibrationService(uowFactory unitofwork.RepositoryFactory) ICalibrationService {
	return &calibrationService{
		uowFactory: uowFactory,
	}
}

func (s *calibrationService) Start(ctx context.Context, req *dto.StartCalibrationRequest) (*dto.StartCalibrationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	calibration := entity.Calibration{
		Id:               uuid.New(),
		UserId:           req.UserId,
		ScreenDimensions: req.ScreenDimensions,
		CameraPosition:   req.CameraPosition,
		Status:           entity.CalibrationPending,
		CreatedAt:        time.Now().UTC(),
	}

	if err := uow.CalibrationRepository().Create(ctx, &calibration); err != nil {
		return nil, err
	}
	return &dto.StartCalibrationResponse{
		Id:     calibration.Id,
		Status: string(calibration.Status),
	}, nil
}

// Complete stores the computed transform and promotes this calibration to
// the user's single active profile.
func (s *calibrationService) Complete(ctx context.Context, req *dto.CompleteCalibrationRequest) (*dto.ShowCalibrationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	calibration, err := uow.CalibrationRepository().FindOne(ctx, specification.ByID{ID: req.Id})
	if err != nil {
		return nil, err
	}
	if calibration == nil {
		return nil, ErrCalibrationNotFound
	}
	if calibration.Status == entity.CalibrationCompleted {
		return nil, ErrCalibrationCompleted
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.CalibrationRepository().DeactivateAllByUserID(ctx, calibration.UserId); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	accuracy := req.AccuracyScore
	calibration.TransformMatrix = req.TransformMatrix
	calibration.AccuracyScore = &accuracy
	calibration.Status = entity.CalibrationCompleted
	calibration.IsActive = true
	calibration.CompletedAt = &now

	if err := uow.CalibrationRepository().Update(ctx, calibration); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	res := calibrationToResponse(calibration)
	return &res, nil
}

func (s *calibrationService) ShowActive(ctx context.Context, userID string) (*dto.ShowCalibrationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	calibration, err := uow.CalibrationRepository().FindOne(ctx,
		specification.ByUserID{UserID: userID},
		specification.ActiveOnly{},
	)
	if err != nil {
		return nil, err
	}
	if calibration == nil {
		return nil, ErrCalibrationNotFound
	}
	res := calibrationToResponse(calibration)
	return &res, nil
}

func calibrationToResponse(c *entity.Calibration) dto.ShowCalibrationResponse {
	return dto.ShowCalibrationResponse{
		Id:               c.Id,
		UserId:           c.UserId,
		ScreenDimensions: c.ScreenDimensions,
		CameraPosition:   c.CameraPosition,
		TransformMatrix:  c.TransformMatrix,
		AccuracyScore:    c.AccuracyScore,
		Status:           string(c.Status),
		IsActive:         c.IsActive,
		CompletedAt:      c.CompletedAt,
		CreatedAt:        c.CreatedAt,
	}
}
