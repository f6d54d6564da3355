package service

import (
	"context"
	"time"

	"eaglearn-be/internal/dto"
	"eaglearn-be/internal/repository/specification"
	"eaglearn-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IDashboardService interface {
	SessionSummary(ctx context.Context, sessionID uuid.UUID, from, to time.Time) (*dto.SessionSummaryResponse, error)
}

type dashboardService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewDashboardService(uowFactory unitofwork.RepositoryFactory) IDashboardService {
	return &dashboardService{
		uowFactory: uowFactory,
	}
}

func (s *dashboardService) SessionSummary(ctx context.Context, sessionID uuid.UUID, from, to time.Time) (*dto.SessionSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionID})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	scores, err := uow.CompositeScoreRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.WindowStartBetween{From: from, To: to},
		specification.OrderBy{Field: "window_start", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	obsCount, err := uow.ObservationRepository().Count(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.CapturedBetween{From: from, To: to},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.SessionSummaryResponse{
		SessionId:      sessionID,
		WindowCount:    len(scores),
		Scores:         make([]dto.ScoreItem, 0, len(scores)),
		ObservationCnt: obsCount,
	}

	for _, score := range scores {
		res.AvgFocus += score.FocusScore
		res.AvgEngagement += score.EngagementScore
		res.AvgStress += score.StressScore
		res.AvgPosture += score.PostureScore
		res.AvgOverall += score.OverallScore
		res.Scores = append(res.Scores, dto.ScoreItem{
			WindowStart:            score.WindowStart,
			WindowEnd:              score.WindowEnd,
			FocusScore:             score.FocusScore,
			EngagementScore:        score.EngagementScore,
			StressScore:            score.StressScore,
			PostureScore:           score.PostureScore,
			OverallScore:           score.OverallScore,
			ContributingConfidence: score.ContributingConfidence,
		})
	}
	if len(scores) > 0 {
		n := float64(len(scores))
		res.AvgFocus /= n
		res.AvgEngagement /= n
		res.AvgStress /= n
		res.AvgPosture /= n
		res.AvgOverall /= n
	}
	return res, nil
}
