package service

import (
	"context"
	"encoding/json"
	"time"

	"eaglearn-be/internal/broker"
	"eaglearn-be/internal/dto"
	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/pkg/logger"
	"eaglearn-be/pkg/events"
	pktNats "eaglearn-be/pkg/nats"

	"github.com/google/uuid"
)

// ScoreRouter receives completed fusion windows and routes each one two
// ways: a live score_update frame to the session's channel, and a pubsub
// message to the persistence consumer. Both paths are fire-and-forget so
// window closing is never blocked by a subscriber or by storage.
type ScoreRouter struct {
	hub            *broker.Hub
	scorePublisher IPublisherService
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewScoreRouter(hub *broker.Hub, scorePublisher IPublisherService, eventPublisher *pktNats.Publisher, log logger.ILogger) *ScoreRouter {
	return &ScoreRouter{
		hub:            hub,
		scorePublisher: scorePublisher,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (r *ScoreRouter) WindowClosed(ctx context.Context, score *entity.CompositeScore) {
	r.hub.Broadcast(broker.SessionChannel(score.SessionId), broker.NewFrame(events.TypeScoreUpdate, dto.ScoreItem{
		WindowStart:            score.WindowStart,
		WindowEnd:              score.WindowEnd,
		FocusScore:             score.FocusScore,
		EngagementScore:        score.EngagementScore,
		StressScore:            score.StressScore,
		PostureScore:           score.PostureScore,
		OverallScore:           score.OverallScore,
		ContributingConfidence: score.ContributingConfidence,
	}))

	msgJson, err := json.Marshal(dto.PublishScoreMessage{
		Id:                     score.Id,
		SessionId:              score.SessionId,
		WindowStart:            score.WindowStart,
		WindowEnd:              score.WindowEnd,
		FocusScore:             score.FocusScore,
		EngagementScore:        score.EngagementScore,
		StressScore:            score.StressScore,
		PostureScore:           score.PostureScore,
		OverallScore:           score.OverallScore,
		ContributingConfidence: score.ContributingConfidence,
	})
	if err != nil {
		r.logger.Error("ScoreRouter", "Score marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := r.scorePublisher.Publish(ctx, msgJson); err != nil {
		r.logger.Error("ScoreRouter", "Score publish failed", map[string]interface{}{
			"session_id": score.SessionId,
			"error":      err.Error(),
		})
	}
}

func (r *ScoreRouter) SignalLost(ctx context.Context, sessionID uuid.UUID) {
	r.hub.Broadcast(broker.SessionChannel(sessionID), broker.NewFrame(events.TypeSignalLost, map[string]interface{}{
		"session_id": sessionID,
	}))

	if r.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeSignalLost,
			Data: map[string]interface{}{
				"session_id": sessionID,
			},
			OccurredAt: time.Now(),
		}
		if err := r.eventPublisher.Publish(context.Background(), evt); err != nil {
			r.logger.Warn("ScoreRouter", "Failed to publish signal_lost event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
