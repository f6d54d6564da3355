package service

import (
	"context"
	"time"

	"eaglearn-be/internal/broker"
	"eaglearn-be/internal/config"
	"eaglearn-be/internal/pkg/logger"
	"eaglearn-be/internal/repository/specification"
	"eaglearn-be/internal/repository/unitofwork"
	"eaglearn-be/pkg/events"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// SweepReport summarizes one retention pass.
type SweepReport struct {
	SoftDeleted int
	HardDeleted int

	// TamperExcluded counts sessions skipped because their encrypted
	// fields failed authentication.
	TamperExcluded int
}

type IRetentionService interface {
	// RunSweep applies the age-based lifecycle once. Safe to re-run:
	// already-processed sessions are not touched again.
	RunSweep(ctx context.Context) (*SweepReport, error)
	// StartScheduler runs RunSweep on the configured cron schedule until
	// the context ends.
	StartScheduler(ctx context.Context)
}

type retentionService struct {
	cfg         config.RetentionConfig
	uowFactory  unitofwork.RepositoryFactory
	broadcaster StreamBroadcaster
	logger      logger.ILogger
	now         func() time.Time
}

func NewRetentionService(cfg config.RetentionConfig, uowFactory unitofwork.RepositoryFactory, broadcaster StreamBroadcaster, log logger.ILogger) IRetentionService {
	return &retentionService{
		cfg:         cfg,
		uowFactory:  uowFactory,
		broadcaster: broadcaster,
		logger:      log,
		now:         time.Now,
	}
}

func (s *retentionService) StartScheduler(ctx context.Context) {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.SweepSchedule, func() {
		report, err := s.RunSweep(context.Background())
		if err != nil {
			s.logger.Error("Retention", "Sweep failed", map[string]interface{}{"error": err.Error()})
			return
		}
		s.logger.Info("Retention", "Sweep finished", map[string]interface{}{
			"soft_deleted":    report.SoftDeleted,
			"hard_deleted":    report.HardDeleted,
			"tamper_excluded": report.TamperExcluded,
		})
	})
	if err != nil {
		s.logger.Error("Retention", "Invalid sweep schedule", map[string]interface{}{
			"schedule": s.cfg.SweepSchedule,
			"error":    err.Error(),
		})
		return
	}

	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
}

func (s *retentionService) RunSweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}
	now := s.now().UTC()

	if err := s.softDeletePass(ctx, now, report); err != nil {
		return report, err
	}
	if err := s.hardDeletePass(ctx, now, report); err != nil {
		return report, err
	}
	return report, nil
}

// softDeletePass hides sessions whose ended_at is strictly older than the
// retention threshold. A session exactly at the threshold is not yet due.
func (s *retentionService) softDeletePass(ctx context.Context, now time.Time, report *SweepReport) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cutoff := now.Add(-s.cfg.SoftDeleteAfter)

	// the default query scope already excludes previously soft-deleted rows
	sessions, excluded, err := uow.SessionRepository().FindAll(ctx, specification.EndedBefore{Cutoff: cutoff})
	if err != nil {
		return err
	}
	s.notifyTampered(excluded)
	report.TamperExcluded += len(excluded)

	for _, session := range sessions {
		if err := uow.SessionRepository().SoftDelete(ctx, session.Id, now); err != nil {
			return err
		}
		report.SoftDeleted++
	}
	return nil
}

// notifyTampered announces each excluded session on its own channel so
// subscribers learn the stored records failed authentication.
func (s *retentionService) notifyTampered(ids []uuid.UUID) {
	if s.broadcaster == nil {
		return
	}
	for _, id := range ids {
		s.broadcaster.Broadcast(broker.SessionChannel(id), broker.NewFrame(events.TypeTamperOrCorruption, map[string]interface{}{
			"session_id": id,
		}))
	}
}

// hardDeletePass permanently removes sessions soft-deleted longer ago than
// the second threshold, children first so the ownership edge stays valid at
// every point. Each session is its own transaction: a crash mid-sweep
// leaves whole sessions either present or gone, and the next run picks up
// the rest from the same age cutoffs.
func (s *retentionService) hardDeletePass(ctx context.Context, now time.Time, report *SweepReport) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cutoff := now.Add(-s.cfg.HardDeleteAfter)

	sessions, excluded, err := uow.SessionRepository().FindAllUnscoped(ctx, specification.SoftDeletedBefore{Cutoff: cutoff})
	if err != nil {
		return err
	}
	s.notifyTampered(excluded)
	report.TamperExcluded += len(excluded)

	for _, session := range sessions {
		txUow := s.uowFactory.NewUnitOfWork(ctx)
		if err := txUow.Begin(ctx); err != nil {
			return err
		}

		err := func() error {
			if err := txUow.ObservationRepository().DeleteAllBySessionIDUnscoped(ctx, session.Id); err != nil {
				return err
			}
			if err := txUow.CompositeScoreRepository().DeleteAllBySessionIDUnscoped(ctx, session.Id); err != nil {
				return err
			}
			return txUow.SessionRepository().HardDeleteUnscoped(ctx, session.Id)
		}()
		if err != nil {
			txUow.Rollback()
			return err
		}
		if err := txUow.Commit(); err != nil {
			return err
		}
		report.HardDeleted++
	}
	return nil
}
