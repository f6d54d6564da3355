package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"eaglearn-be/internal/dto"
	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/pkg/logger"
	"eaglearn-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v5"
)

const persistMaxAttempts = 3

// IPersisterService drains the observation and score topics into the store.
// A store outage flips the service into degraded mode: entities keep
// flowing to live subscribers while their persistence is surfaced
// per-entity, never stalling the pipeline.
type IPersisterService interface {
	Consume(ctx context.Context) error
	Degraded() bool
}

type persisterService struct {
	pubSub           *gochannel.GoChannel
	observationTopic string
	scoreTopic       string
	uowFactory       unitofwork.RepositoryFactory
	logger           logger.ILogger
	degraded         atomic.Bool
}

func NewPersisterService(
	pubSub *gochannel.GoChannel,
	observationTopic string,
	scoreTopic string,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IPersisterService {
	return &persisterService{
		pubSub:           pubSub,
		observationTopic: observationTopic,
		scoreTopic:       scoreTopic,
		uowFactory:       uowFactory,
		logger:           log,
	}
}

func (ps *persisterService) Degraded() bool {
	return ps.degraded.Load()
}

func (ps *persisterService) Consume(ctx context.Context) error {
	observations, err := ps.pubSub.Subscribe(ctx, ps.observationTopic)
	if err != nil {
		return err
	}
	scores, err := ps.pubSub.Subscribe(ctx, ps.scoreTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range observations {
			ps.processObservation(ctx, msg)
		}
	}()
	go func() {
		for msg := range scores {
			ps.processScore(ctx, msg)
		}
	}()

	return nil
}

func (ps *persisterService) processObservation(ctx context.Context, msg *message.Message) {
	var payload dto.PublishObservationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ps.logger.Error("Persister", "Malformed observation message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // never retried, the payload will not get better
		return
	}

	obs := &entity.Observation{
		Id:         payload.Id,
		SessionId:  payload.SessionId,
		Family:     entity.SignalFamily(payload.Family),
		CapturedAt: payload.CapturedAt,
		Payload:    payload.Payload,
		Confidence: payload.Confidence,
		CreatedAt:  time.Now().UTC(),
	}

	ps.persist(ctx, "observation", payload.Id.String(), func() error {
		uow := ps.uowFactory.NewUnitOfWork(ctx)
		return uow.ObservationRepository().Create(ctx, obs)
	})
	msg.Ack()
}

func (ps *persisterService) processScore(ctx context.Context, msg *message.Message) {
	var payload dto.PublishScoreMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ps.logger.Error("Persister", "Malformed score message", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	score := &entity.CompositeScore{
		Id:                     payload.Id,
		SessionId:              payload.SessionId,
		WindowStart:            payload.WindowStart,
		WindowEnd:              payload.WindowEnd,
		FocusScore:             payload.FocusScore,
		EngagementScore:        payload.EngagementScore,
		StressScore:            payload.StressScore,
		PostureScore:           payload.PostureScore,
		OverallScore:           payload.OverallScore,
		ContributingConfidence: payload.ContributingConfidence,
		CreatedAt:              time.Now().UTC(),
	}

	ps.persist(ctx, "composite_score", payload.Id.String(), func() error {
		uow := ps.uowFactory.NewUnitOfWork(ctx)
		return uow.CompositeScoreRepository().Create(ctx, score)
	})
	msg.Ack()
}

// persist retries the write with exponential backoff. After the final
// attempt fails, the entity is surfaced as persistence_unavailable and
// processing moves on to the next one.
func (ps *persisterService) persist(ctx context.Context, kind, id string, write func() error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 100 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, write()
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(persistMaxAttempts))

	if err != nil {
		ps.degraded.Store(true)
		ps.logger.Error("Persister", "persistence_unavailable", map[string]interface{}{
			"kind":  kind,
			"id":    id,
			"error": err.Error(),
		})
		return
	}
	if ps.degraded.Swap(false) {
		ps.logger.Info("Persister", "Store reachable again, leaving degraded mode", nil)
	}
}
