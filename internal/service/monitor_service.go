package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"eaglearn-be/internal/broker"
	"eaglearn-be/internal/dto"
	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/fusion"
	"eaglearn-be/internal/pkg/logger"
	"eaglearn-be/internal/repository/specification"
	"eaglearn-be/internal/repository/unitofwork"
	"eaglearn-be/pkg/events"
	pktNats "eaglearn-be/pkg/nats"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session already ended")
	ErrSessionActive   = errors.New("session still active")
)

// StreamBroadcaster is the fan-out side of the stream hub. Services hold
// this instead of the hub itself so tests can capture what goes out.
type StreamBroadcaster interface {
	Broadcast(channel string, frame broker.Frame)
}

type IMonitorService interface {
	StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	ShowSession(ctx context.Context, id uuid.UUID) (*dto.ShowSessionResponse, error)
	ListSessions(ctx context.Context, page int, limit int) (*dto.ListSessionsResponse, error)
	SubmitObservation(ctx context.Context, sessionID uuid.UUID, family string, payload []float64, confidence float64, capturedAt time.Time) error
	EndSession(ctx context.Context, sessionID uuid.UUID) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}

type monitorService struct {
	uowFactory       unitofwork.RepositoryFactory
	pipeline         *fusion.Pipeline
	hub              StreamBroadcaster
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	logger           logger.ILogger
}

func NewMonitorService(
	uowFactory unitofwork.RepositoryFactory,
	pipeline *fusion.Pipeline,
	hub StreamBroadcaster,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IMonitorService {
	return &monitorService{
		uowFactory:       uowFactory,
		pipeline:         pipeline,
		hub:              hub,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		logger:           log,
	}
}

func (s *monitorService) StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session := entity.Session{
		Id:         uuid.New(),
		Status:     entity.SessionActive,
		StartedAt:  time.Now().UTC(),
		DeviceInfo: req.DeviceInfo,
		OSVersion:  req.OSVersion,
		CreatedAt:  time.Now().UTC(),
	}

	if err := uow.SessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	s.broadcastState(&session)
	s.publishLifecycleEvent("session_started", &session)

	return &dto.StartSessionResponse{
		Id:        session.Id,
		Status:    string(session.Status),
		StartedAt: session.StartedAt,
	}, nil
}

func (s *monitorService) ShowSession(ctx context.Context, id uuid.UUID) (*dto.ShowSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	res := sessionToResponse(session)
	return &res, nil
}

func (s *monitorService) ListSessions(ctx context.Context, page int, limit int) (*dto.ListSessionsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, excluded, err := uow.SessionRepository().FindAll(ctx,
		specification.OrderBy{Field: "started_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)
	if err != nil {
		return nil, err
	}

	res := dto.ListSessionsResponse{
		Sessions: make([]dto.ShowSessionResponse, 0, len(sessions)),
		Excluded: len(excluded),
	}
	for _, session := range sessions {
		res.Sessions = append(res.Sessions, sessionToResponse(session))
	}
	if len(excluded) > 0 {
		s.broadcastTamper(excluded)
		s.logger.Warn("Monitor", "Sessions excluded from listing", map[string]interface{}{
			"excluded": len(excluded),
		})
	}
	return &res, nil
}

// SubmitObservation feeds one reading into the fusion pipeline and hands it
// to the persistence consumer. The write to storage is asynchronous so the
// ingest path stays fast.
func (s *monitorService) SubmitObservation(ctx context.Context, sessionID uuid.UUID, family string, payload []float64, confidence float64, capturedAt time.Time) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionID})
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if !session.Active() {
		return ErrSessionEnded
	}

	obs := &entity.Observation{
		Id:         uuid.New(),
		SessionId:  sessionID,
		Family:     entity.SignalFamily(family),
		CapturedAt: capturedAt,
		Payload:    payload,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.pipeline.Ingest(obs); err != nil {
		return err
	}

	msgJson, err := json.Marshal(dto.PublishObservationMessage{
		Id:         obs.Id,
		SessionId:  obs.SessionId,
		Family:     string(obs.Family),
		CapturedAt: obs.CapturedAt,
		Payload:    obs.Payload,
		Confidence: obs.Confidence,
	})
	if err != nil {
		return err
	}
	return s.publisherService.Publish(ctx, msgJson)
}

// EndSession flushes the session's open fusion window, marks the session
// ended and announces the lifecycle change.
func (s *monitorService) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionID})
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.EndedAt != nil {
		return ErrSessionEnded
	}

	s.pipeline.Flush(ctx, sessionID)

	now := time.Now().UTC()
	session.EndedAt = &now
	session.Status = entity.SessionEnded
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return err
	}

	s.broadcastState(session)
	s.publishLifecycleEvent("session_ended", session)
	return nil
}

// DeleteSession soft-deletes an ended session ahead of the retention sweep.
// Active sessions must be ended first.
func (s *monitorService) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionID})
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.EndedAt == nil {
		return ErrSessionActive
	}

	return uow.SessionRepository().SoftDelete(ctx, sessionID, time.Now().UTC())
}

// broadcastTamper tells each affected session's subscribers that its
// stored records failed authentication.
func (s *monitorService) broadcastTamper(ids []uuid.UUID) {
	for _, id := range ids {
		s.hub.Broadcast(broker.SessionChannel(id), broker.NewFrame(events.TypeTamperOrCorruption, map[string]interface{}{
			"session_id": id,
		}))
	}
}

func (s *monitorService) broadcastState(session *entity.Session) {
	s.hub.Broadcast(broker.SessionChannel(session.Id), broker.NewFrame(events.TypeStateUpdate, map[string]interface{}{
		"session_id": session.Id,
		"status":     session.Status,
		"started_at": session.StartedAt,
		"ended_at":   session.EndedAt,
	}))
}

func (s *monitorService) publishLifecycleEvent(eventType string, session *entity.Session) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"session_id": session.Id,
			"started_at": session.StartedAt,
			"ended_at":   session.EndedAt,
		},
		OccurredAt: time.Now(),
	}
	// lifecycle mirroring is auxiliary, a publish failure never fails the request
	if err := s.eventPublisher.Publish(context.Background(), evt); err != nil {
		s.logger.Warn("Monitor", "Failed to publish lifecycle event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func sessionToResponse(session *entity.Session) dto.ShowSessionResponse {
	return dto.ShowSessionResponse{
		Id:         session.Id,
		Status:     string(session.Status),
		StartedAt:  session.StartedAt,
		EndedAt:    session.EndedAt,
		DeviceInfo: session.DeviceInfo,
		OSVersion:  session.OSVersion,
	}
}
