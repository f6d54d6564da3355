package fusion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eaglearn-be/internal/config"
	"eaglearn-be/internal/entity"

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

type captureSink struct {
	mu         sync.Mutex
	scores     []*entity.CompositeScore
	signalLost []uuid.UUID
}

func (s *captureSink) WindowClosed(_ context.Context, score *entity.CompositeScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append(s.scores, score)
}

func (s *captureSink) SignalLost(_ context.Context, sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signalLost = append(s.signalLost, sessionID)
}

func (s *captureSink) scoreCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scores)
}

func (s *captureSink) lostCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.signalLost)
}

func testPipeline(sink ScoreSink) (*Pipeline, *time.Time) {
	cfg := config.FusionConfig{
		WindowLength: 2 * time.Second,
		FocusDecay:   0.9,
	}
	p := NewPipeline(cfg, sink, nopLogger{})
	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }
	return p, &clock
}

func obsAt(sessionID uuid.UUID, family entity.SignalFamily, payload []float64, confidence float64, at time.Time) *entity.Observation {
	return &entity.Observation{
		Id:         uuid.New(),
		SessionId:  sessionID,
		Family:     family,
		CapturedAt: at,
		Payload:    payload,
		Confidence: confidence,
	}
}

func TestPipelineScoresWindow(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	sessionID := uuid.New()

	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.52, 0.48}, 0.9, *clock)))
	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.49, 0.51}, 0.8, *clock)))
	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.50, 0.50}, 0.95, *clock)))
	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyPose, []float64{2, 3, 1}, 0.85, *clock)))
	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyStress, []float64{0.2}, 0.8, *clock)))

	p.closeDueWindows(context.Background(), clock.Add(2*time.Second))

	require.Equal(t, 1, sink.scoreCount())
	score := sink.scores[0]
	assert.Equal(t, sessionID, score.SessionId)
	assert.Greater(t, score.FocusScore, 80.0, "near-center gaze must score high focus")
	assert.Equal(t, 20.0, score.StressScore)
	assert.InDelta(t, 0.86, score.ContributingConfidence, 0.001)
	assert.GreaterOrEqual(t, score.OverallScore, 0.0)
	assert.LessOrEqual(t, score.OverallScore, 100.0)
	assert.Equal(t, score.WindowStart.Add(2*time.Second), score.WindowEnd)
}

func TestPipelineRejectsStaleObservation(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	sessionID := uuid.New()

	// create the session state at the current clock
	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))

	stale := obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, clock.Add(-3*time.Second))
	err := p.Ingest(stale)
	assert.True(t, errors.Is(err, ErrStaleObservation))
	assert.Equal(t, uint64(1), p.DroppedStale(sessionID))

	// exactly one window back is still acceptable
	borderline := obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, clock.Add(-2*time.Second))
	assert.NoError(t, p.Ingest(borderline))
}

func TestPipelineRejectsMalformedObservation(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	sessionID := uuid.New()

	tests := []struct {
		name    string
		obs     *entity.Observation
		wantErr error
	}{
		{
			name:    "unknown family",
			obs:     obsAt(sessionID, "heartbeat", []float64{1}, 0.9, *clock),
			wantErr: ErrInvalidFamily,
		},
		{
			name:    "gaze payload too short",
			obs:     obsAt(sessionID, entity.FamilyGaze, []float64{0.5}, 0.9, *clock),
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "pose payload too short",
			obs:     obsAt(sessionID, entity.FamilyPose, []float64{1, 2}, 0.9, *clock),
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "confidence out of range",
			obs:     obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 1.2, *clock),
			wantErr: ErrInvalidConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Ingest(tt.obs)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestPipelineSignalLostAfterTwoEmptyWindows(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	sessionID := uuid.New()

	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))

	// window 1 has data, windows 2 and 3 are empty
	p.closeDueWindows(context.Background(), clock.Add(2*time.Second))
	p.closeDueWindows(context.Background(), clock.Add(4*time.Second))
	assert.Equal(t, 0, sink.lostCount(), "one empty window is not signal loss")

	p.closeDueWindows(context.Background(), clock.Add(6*time.Second))
	assert.Equal(t, 1, sink.lostCount())

	// suspended: further ticks emit nothing more
	p.closeDueWindows(context.Background(), clock.Add(8*time.Second))
	p.closeDueWindows(context.Background(), clock.Add(20*time.Second))
	assert.Equal(t, 1, sink.lostCount(), "signal_lost is emitted exactly once")
	scoresWhileSuspended := sink.scoreCount()

	// a new observation resumes scoring
	*clock = clock.Add(20 * time.Second)
	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))
	p.closeDueWindows(context.Background(), clock.Add(2*time.Second))
	assert.Equal(t, scoresWhileSuspended+1, sink.scoreCount())
}

func TestPipelineSuspendedStateEvictedAfterTTL(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	p.cfg.SuspendedTTL = 10 * time.Second
	sessionID := uuid.New()

	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))

	// two empty windows suspend the session at +6s
	p.closeDueWindows(context.Background(), clock.Add(2*time.Second))
	p.closeDueWindows(context.Background(), clock.Add(4*time.Second))
	p.closeDueWindows(context.Background(), clock.Add(6*time.Second))
	require.Equal(t, 1, sink.lostCount())

	hasState := func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, ok := p.sessions[sessionID]
		return ok
	}

	p.closeDueWindows(context.Background(), clock.Add(10*time.Second))
	assert.True(t, hasState(), "state survives while the TTL has not elapsed")

	p.closeDueWindows(context.Background(), clock.Add(16*time.Second))
	assert.False(t, hasState(), "suspended state must not outlive the TTL")

	// a client that comes back later simply starts a fresh window
	*clock = clock.Add(20 * time.Second)
	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))
	before := sink.scoreCount()
	p.closeDueWindows(context.Background(), clock.Add(2*time.Second))
	assert.Equal(t, before+1, sink.scoreCount())
}

func TestPipelineFocusCarryForwardDecay(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	sessionID := uuid.New()

	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))
	p.closeDueWindows(context.Background(), clock.Add(2*time.Second))
	require.Equal(t, 1, sink.scoreCount())
	first := sink.scores[0].FocusScore
	assert.Equal(t, 100.0, first)

	// next window has pose but no gaze, focus decays instead of dropping
	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyPose, []float64{0, 0, 0}, 0.9, clock.Add(3*time.Second))))
	p.closeDueWindows(context.Background(), clock.Add(4*time.Second))
	require.Equal(t, 2, sink.scoreCount())
	assert.InDelta(t, first*0.9, sink.scores[1].FocusScore, 1e-9)
}

func TestPipelineWindowsStrictlyIncreasing(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	sessionID := uuid.New()

	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))

	// a late tick covering several windows closes them in order
	p.closeDueWindows(context.Background(), clock.Add(5*time.Second))

	require.Equal(t, 2, sink.scoreCount())
	assert.True(t, sink.scores[0].WindowEnd.Equal(sink.scores[1].WindowStart),
		"windows must be contiguous and in increasing order")
}

func TestPipelineFlushScoresPartialWindow(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	sessionID := uuid.New()

	require.NoError(t, p.Ingest(obsAt(sessionID, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))
	p.Flush(context.Background(), sessionID)
	assert.Equal(t, 1, sink.scoreCount(), "trailing observations score on session end")

	// state is gone, flushing again is a no-op
	p.Flush(context.Background(), sessionID)
	assert.Equal(t, 1, sink.scoreCount())
}

func TestPipelineSessionsIsolated(t *testing.T) {
	sink := &captureSink{}
	p, clock := testPipeline(sink)
	good, bad := uuid.New(), uuid.New()

	require.NoError(t, p.Ingest(obsAt(good, entity.FamilyGaze, []float64{0.5, 0.5}, 0.9, *clock)))
	assert.Error(t, p.Ingest(obsAt(bad, entity.FamilyGaze, []float64{0.5}, 0.9, *clock)))

	p.closeDueWindows(context.Background(), clock.Add(2*time.Second))
	require.Equal(t, 1, sink.scoreCount())
	assert.Equal(t, good, sink.scores[0].SessionId)
}
