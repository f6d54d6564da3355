package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"eaglearn-be/internal/broker"
	"eaglearn-be/internal/config"
	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/repository/contract"
	"eaglearn-be/internal/repository/specification"
	"eaglearn-be/internal/repository/unitofwork"
	"eaglearn-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// in-memory store shared by the fake repositories. Sessions in the
// tampered set play the role of rows whose encrypted fields no longer
// authenticate.
type fakeStore struct {
	sessions     map[uuid.UUID]*entity.Session
	observations map[uuid.UUID]*entity.Observation
	scores       map[uuid.UUID]*entity.CompositeScore
	tampered     map[uuid.UUID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:     make(map[uuid.UUID]*entity.Session),
		observations: make(map[uuid.UUID]*entity.Observation),
		scores:       make(map[uuid.UUID]*entity.CompositeScore),
		tampered:     make(map[uuid.UUID]bool),
	}
}

type capturedFrame struct {
	channel string
	frame   broker.Frame
}

type captureBroadcaster struct {
	mu     sync.Mutex
	frames []capturedFrame
}

func (b *captureBroadcaster) Broadcast(channel string, frame broker.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, capturedFrame{channel: channel, frame: frame})
}

func (b *captureBroadcaster) captured() []capturedFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capturedFrame(nil), b.frames...)
}

type fakeUowFactory struct{ store *fakeStore }

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct{ store *fakeStore }

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) SessionRepository() contract.SessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUow) ObservationRepository() contract.ObservationRepository {
	return &fakeObservationRepo{store: u.store}
}

func (u *fakeUow) CompositeScoreRepository() contract.CompositeScoreRepository {
	return &fakeScoreRepo{store: u.store}
}

func (u *fakeUow) CalibrationRepository() contract.CalibrationRepository { return nil }

type fakeSessionRepo struct{ store *fakeStore }

func (r *fakeSessionRepo) Create(ctx context.Context, s *entity.Session) error {
	cp := *s
	r.store.sessions[s.Id] = &cp
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *entity.Session) error {
	cp := *s
	r.store.sessions[s.Id] = &cp
	return nil
}

func (r *fakeSessionRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s, ok := r.store.sessions[id]; ok && s.DeletedAt == nil {
		t := at
		s.DeletedAt = &t
	}
	return nil
}

func (r *fakeSessionRepo) HardDeleteUnscoped(ctx context.Context, id uuid.UUID) error {
	delete(r.store.sessions, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Session, error) {
	for _, s := range r.store.sessions {
		if s.DeletedAt == nil && matchSession(s, specs) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, []uuid.UUID, error) {
	var out []*entity.Session
	var excluded []uuid.UUID
	for _, s := range r.store.sessions {
		if s.DeletedAt != nil || !matchSession(s, specs) {
			continue
		}
		if r.store.tampered[s.Id] {
			excluded = append(excluded, s.Id)
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, excluded, nil
}

func (r *fakeSessionRepo) FindAllUnscoped(ctx context.Context, specs ...specification.Specification) ([]*entity.Session, []uuid.UUID, error) {
	var out []*entity.Session
	var excluded []uuid.UUID
	for _, s := range r.store.sessions {
		if !matchSession(s, specs) {
			continue
		}
		if r.store.tampered[s.Id] {
			excluded = append(excluded, s.Id)
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, excluded, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// matchSession interprets the filters the sweep uses.
func matchSession(s *entity.Session, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByID:
			if s.Id != v.ID {
				return false
			}
		case specification.EndedBefore:
			if s.EndedAt == nil || !s.EndedAt.Before(v.Cutoff) {
				return false
			}
		case specification.SoftDeletedBefore:
			if s.DeletedAt == nil || !s.DeletedAt.Before(v.Cutoff) {
				return false
			}
		}
	}
	return true
}

type fakeObservationRepo struct{ store *fakeStore }

func (r *fakeObservationRepo) Create(ctx context.Context, o *entity.Observation) error {
	cp := *o
	r.store.observations[o.Id] = &cp
	return nil
}

func (r *fakeObservationRepo) DeleteAllBySessionIDUnscoped(ctx context.Context, sessionID uuid.UUID) error {
	for id, o := range r.store.observations {
		if o.SessionId == sessionID {
			delete(r.store.observations, id)
		}
	}
	return nil
}

func (r *fakeObservationRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Observation, error) {
	var out []*entity.Observation
	for _, o := range r.store.observations {
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeObservationRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store.observations)), nil
}

type fakeScoreRepo struct{ store *fakeStore }

func (r *fakeScoreRepo) Create(ctx context.Context, s *entity.CompositeScore) error {
	cp := *s
	r.store.scores[s.Id] = &cp
	return nil
}

func (r *fakeScoreRepo) DeleteAllBySessionIDUnscoped(ctx context.Context, sessionID uuid.UUID) error {
	for id, s := range r.store.scores {
		if s.SessionId == sessionID {
			delete(r.store.scores, id)
		}
	}
	return nil
}

func (r *fakeScoreRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CompositeScore, error) {
	var out []*entity.CompositeScore
	for _, s := range r.store.scores {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeScoreRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store.scores)), nil
}

func retentionSetup() (*fakeStore, *retentionService, time.Time) {
	store := newFakeStore()
	cfg := config.RetentionConfig{
		SoftDeleteAfter: 30 * 24 * time.Hour,
		HardDeleteAfter: 60 * 24 * time.Hour,
		SweepSchedule:   "0 2 * * *",
	}
	svc := NewRetentionService(cfg, &fakeUowFactory{store: store}, &captureBroadcaster{}, nopLogger{}).(*retentionService)
	now := time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return store, svc, now
}

func seedSession(store *fakeStore, endedAgo *time.Duration, deletedAgo *time.Duration, now time.Time) uuid.UUID {
	id := uuid.New()
	s := &entity.Session{
		Id:        id,
		Status:    entity.SessionEnded,
		StartedAt: now.Add(-100 * 24 * time.Hour),
	}
	if endedAgo != nil {
		t := now.Add(-*endedAgo)
		s.EndedAt = &t
	}
	if deletedAgo != nil {
		t := now.Add(-*deletedAgo)
		s.DeletedAt = &t
	}
	store.sessions[id] = s

	obsID := uuid.New()
	store.observations[obsID] = &entity.Observation{
		Id:        obsID,
		SessionId: id,
		Family:    entity.FamilyGaze,
	}
	scoreID := uuid.New()
	store.scores[scoreID] = &entity.CompositeScore{
		Id:        scoreID,
		SessionId: id,
	}
	return id
}

func days(n float64) *time.Duration {
	d := time.Duration(n * 24 * float64(time.Hour))
	return &d
}

func TestSweepSoftDeleteBoundaryExclusive(t *testing.T) {
	store, svc, now := retentionSetup()

	atThreshold := seedSession(store, days(30), nil, now)
	pastThreshold := seedSession(store, days(30.5), nil, now)
	recent := seedSession(store, days(5), nil, now)
	active := seedSession(store, nil, nil, now)

	report, err := svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SoftDeleted)

	assert.Nil(t, store.sessions[atThreshold].DeletedAt, "ended_at exactly at the threshold is not yet due")
	assert.NotNil(t, store.sessions[pastThreshold].DeletedAt)
	assert.Nil(t, store.sessions[recent].DeletedAt)
	assert.Nil(t, store.sessions[active].DeletedAt, "active sessions are never touched")
}

func TestSweepSoftDeleteOneSecondPastThreshold(t *testing.T) {
	store, svc, now := retentionSetup()

	ago := 30*24*time.Hour + time.Second
	id := seedSession(store, &ago, nil, now)

	report, err := svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SoftDeleted)
	assert.NotNil(t, store.sessions[id].DeletedAt)
}

func TestSweepHardDeleteChildrenThenParent(t *testing.T) {
	store, svc, now := retentionSetup()

	dead := seedSession(store, days(95), days(61), now)
	lingering := seedSession(store, days(65), days(35), now)

	report, err := svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.HardDeleted)

	_, deadExists := store.sessions[dead]
	assert.False(t, deadExists, "session past the hard threshold is removed")
	for _, o := range store.observations {
		assert.NotEqual(t, dead, o.SessionId, "observations of a purged session are gone")
	}
	for _, s := range store.scores {
		assert.NotEqual(t, dead, s.SessionId, "scores of a purged session are gone")
	}

	_, lingeringExists := store.sessions[lingering]
	assert.True(t, lingeringExists, "soft-deleted but not yet due for hard delete")
}

func TestSweepIdempotent(t *testing.T) {
	store, svc, now := retentionSetup()

	seedSession(store, days(40), nil, now)
	seedSession(store, days(95), days(61), now)
	seedSession(store, days(5), nil, now)

	first, err := svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.SoftDeleted)
	assert.Equal(t, 1, first.HardDeleted)

	snapshotSessions := len(store.sessions)
	snapshotObs := len(store.observations)
	snapshotScores := len(store.scores)
	var deletedAts []time.Time
	for _, s := range store.sessions {
		if s.DeletedAt != nil {
			deletedAts = append(deletedAts, *s.DeletedAt)
		}
	}

	second, err := svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.SoftDeleted, "second run has nothing left to soft-delete")
	assert.Equal(t, 0, second.HardDeleted, "second run has nothing left to hard-delete")

	assert.Equal(t, snapshotSessions, len(store.sessions))
	assert.Equal(t, snapshotObs, len(store.observations))
	assert.Equal(t, snapshotScores, len(store.scores))

	var after []time.Time
	for _, s := range store.sessions {
		if s.DeletedAt != nil {
			after = append(after, *s.DeletedAt)
		}
	}
	assert.ElementsMatch(t, deletedAts, after, "deletion timestamps never move on re-run")
}

func TestSweepAnnouncesTamperedSessions(t *testing.T) {
	store, svc, now := retentionSetup()

	tampered := seedSession(store, days(40), nil, now)
	store.tampered[tampered] = true
	healthy := seedSession(store, days(40), nil, now)

	report, err := svc.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.SoftDeleted)
	assert.Equal(t, 1, report.TamperExcluded)

	assert.Nil(t, store.sessions[tampered].DeletedAt, "an unreadable session is skipped, not deleted")
	assert.NotNil(t, store.sessions[healthy].DeletedAt)

	frames := svc.broadcaster.(*captureBroadcaster).captured()
	require.Len(t, frames, 1)
	assert.Equal(t, broker.SessionChannel(tampered), frames[0].channel)
	assert.Equal(t, events.TypeTamperOrCorruption, frames[0].frame.Type)
	data, ok := frames[0].frame.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, tampered, data["session_id"])
}
