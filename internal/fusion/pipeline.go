package fusion

import (
	"context"
	"errors"
	"sync"
	"time"

	"eaglearn-be/internal/config"
	"eaglearn-be/internal/entity"
	"eaglearn-be/internal/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrStaleObservation  = errors.New("observation is older than one window before the current window")
	ErrInvalidFamily     = errors.New("unknown signal family")
	ErrInvalidPayload    = errors.New("payload does not match the family layout")
	ErrInvalidConfidence = errors.New("confidence must be within [0,1]")
)

// ScoreSink receives pipeline output. Implementations must not block; slow
// consumers would stall window closing for every session handled by the
// calling goroutine.
type ScoreSink interface {
	WindowClosed(ctx context.Context, score *entity.CompositeScore)
	SignalLost(ctx context.Context, sessionID uuid.UUID)
}

// Pipeline fuses family-tagged observations into fixed-length score windows
// per session. Sessions never share state: each has its own lock, so one
// session's scoring cannot block another's.
type Pipeline struct {
	cfg    config.FusionConfig
	sink   ScoreSink
	logger logger.ILogger

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionState

	now func() time.Time
}

type sessionState struct {
	mu        sync.Mutex
	sessionID uuid.UUID

	windowStart time.Time
	gaze        []*entity.Observation
	pose        []*entity.Observation
	stress      []*entity.Observation

	// lastStress outlives its window because stress arrives on a slower,
	// overlapping cadence than gaze and pose.
	lastStress *entity.Observation

	prevFocus    float64
	hasPrevFocus bool

	emptyWindows int
	suspended    bool
	suspendedAt  time.Time
	droppedStale uint64
}

type emission struct {
	score      *entity.CompositeScore
	signalLost *uuid.UUID
}

func NewPipeline(cfg config.FusionConfig, sink ScoreSink, log logger.ILogger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		sink:     sink,
		logger:   log,
		sessions: make(map[uuid.UUID]*sessionState),
		now:      time.Now,
	}
}

// Run drives window closing on a fixed cadence until the context ends.
// Closing runs independently of observation arrival, so a silent client
// still produces windows (and eventually a signal_lost).
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.WindowLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.closeDueWindows(ctx, p.now())
		}
	}
}

// Ingest validates and buffers one observation into the session's open
// window. Too-stale observations are rejected and counted, never buffered.
func (p *Pipeline) Ingest(obs *entity.Observation) error {
	if !obs.Family.Valid() {
		return ErrInvalidFamily
	}
	if obs.Confidence < 0 || obs.Confidence > 1 {
		return ErrInvalidConfidence
	}
	if !validPayload(obs.Family, obs.Payload) {
		return ErrInvalidPayload
	}

	st := p.state(obs.SessionId)

	st.mu.Lock()
	defer st.mu.Unlock()

	if obs.CapturedAt.Before(st.windowStart.Add(-p.cfg.WindowLength)) {
		st.droppedStale++
		return ErrStaleObservation
	}

	if st.suspended {
		// window closing resumes on a fresh window; the silent gap is not
		// retroactively scored
		st.suspended = false
		st.suspendedAt = time.Time{}
		st.emptyWindows = 0
		st.windowStart = p.now()
	}

	switch obs.Family {
	case entity.FamilyGaze:
		st.gaze = append(st.gaze, obs)
	case entity.FamilyPose:
		st.pose = append(st.pose, obs)
	case entity.FamilyStress:
		st.stress = append(st.stress, obs)
		if st.lastStress == nil || obs.CapturedAt.After(st.lastStress.CapturedAt) {
			st.lastStress = obs
		}
	}
	return nil
}

// Flush closes the session's partial window immediately and removes its
// state. Used when a session ends, so trailing observations still score.
func (p *Pipeline) Flush(ctx context.Context, sessionID uuid.UUID) {
	p.mu.Lock()
	st, ok := p.sessions[sessionID]
	if ok {
		delete(p.sessions, sessionID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	st.mu.Lock()
	var out []emission
	if !st.suspended && (len(st.gaze)+len(st.pose)+len(st.stress)) > 0 {
		out = append(out, st.closeOne(p.cfg, p.now()))
	}
	st.mu.Unlock()

	p.emit(ctx, out)
}

// DroppedStale reports the per-session stale rejection counter.
func (p *Pipeline) DroppedStale(sessionID uuid.UUID) uint64 {
	p.mu.Lock()
	st, ok := p.sessions[sessionID]
	p.mu.Unlock()
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.droppedStale
}

func (p *Pipeline) state(sessionID uuid.UUID) *sessionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.sessions[sessionID]
	if !ok {
		st = &sessionState{
			sessionID:   sessionID,
			windowStart: p.now(),
		}
		p.sessions[sessionID] = st
	}
	return st
}

func (p *Pipeline) closeDueWindows(ctx context.Context, now time.Time) {
	p.mu.Lock()
	states := make([]*sessionState, 0, len(p.sessions))
	for _, st := range p.sessions {
		states = append(states, st)
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, st := range states {
		wg.Add(1)
		// cross-session work is parallel; per-session ordering is kept by
		// the state lock and the strictly advancing windowStart
		go func(st *sessionState) {
			defer wg.Done()
			p.emit(ctx, p.closeSession(st, now))
		}(st)
	}
	wg.Wait()

	p.evictExpired(now)
}

// evictExpired drops the state of sessions that stayed suspended past the
// TTL, so a client that vanished without ending its session cannot pin
// pipeline memory indefinitely.
func (p *Pipeline) evictExpired(now time.Time) {
	if p.cfg.SuspendedTTL <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, st := range p.sessions {
		st.mu.Lock()
		expired := st.suspended && now.Sub(st.suspendedAt) >= p.cfg.SuspendedTTL
		st.mu.Unlock()
		if expired {
			delete(p.sessions, id)
			p.logger.Info("Fusion", "Suspended session state evicted", map[string]interface{}{
				"session_id": id.String(),
			})
		}
	}
}

func (p *Pipeline) closeSession(st *sessionState, now time.Time) []emission {
	st.mu.Lock()
	defer st.mu.Unlock()

	var out []emission
	for !st.suspended && !now.Before(st.windowStart.Add(p.cfg.WindowLength)) {
		out = append(out, st.closeOne(p.cfg, st.windowStart.Add(p.cfg.WindowLength)))
	}
	return out
}

// closeOne scores the current window and advances windowStart. Caller holds
// the state lock.
func (st *sessionState) closeOne(cfg config.FusionConfig, windowEnd time.Time) emission {
	empty := len(st.gaze)+len(st.pose)+len(st.stress) == 0

	if empty {
		st.emptyWindows++
		if st.emptyWindows >= 2 {
			st.suspended = true
			st.suspendedAt = windowEnd
			st.resetWindow(windowEnd)
			id := st.sessionID
			return emission{signalLost: &id}
		}
	} else {
		st.emptyWindows = 0
	}

	focus, ok := focusScore(st.gaze)
	if !ok {
		// no usable gaze this window: decay the previous score instead of
		// spiking to zero on a dropped frame
		if st.hasPrevFocus {
			focus = st.prevFocus * cfg.FocusDecay
		} else {
			focus = defaultScore
		}
	}
	st.prevFocus = focus
	st.hasPrevFocus = true

	stressObs := st.overlappingStress(cfg, windowEnd)
	engagement := engagementScore(st.gaze, st.pose)
	posture := postureScore(st.pose)
	stress := stressScore(stressObs)

	score := &entity.CompositeScore{
		Id:                     uuid.New(),
		SessionId:              st.sessionID,
		WindowStart:            st.windowStart,
		WindowEnd:              windowEnd,
		FocusScore:             focus,
		EngagementScore:        engagement,
		StressScore:            stress,
		PostureScore:           posture,
		OverallScore:           overallScore(focus, engagement, stress, posture),
		ContributingConfidence: contributingConfidence(st.gaze, st.pose, st.stress),
		CreatedAt:              time.Now().UTC(),
	}

	st.resetWindow(windowEnd)
	return emission{score: score}
}

// overlappingStress picks the newest stress observation still close enough
// to cover this window. Stress windows stretch across a couple of score
// windows, so the previous reading stays usable for a short while.
func (st *sessionState) overlappingStress(cfg config.FusionConfig, windowEnd time.Time) *entity.Observation {
	if st.lastStress == nil {
		return nil
	}
	if st.lastStress.CapturedAt.Before(windowEnd.Add(-2 * cfg.WindowLength)) {
		return nil
	}
	return st.lastStress
}

func (st *sessionState) resetWindow(windowEnd time.Time) {
	st.gaze = nil
	st.pose = nil
	st.stress = nil
	st.windowStart = windowEnd
}

func (p *Pipeline) emit(ctx context.Context, out []emission) {
	for _, e := range out {
		if e.score != nil {
			p.sink.WindowClosed(ctx, e.score)
		}
		if e.signalLost != nil {
			p.logger.Warn("Fusion", "Signal lost", map[string]interface{}{
				"session_id": e.signalLost.String(),
			})
			p.sink.SignalLost(ctx, *e.signalLost)
		}
	}
}

func validPayload(family entity.SignalFamily, payload []float64) bool {
	switch family {
	case entity.FamilyGaze:
		return len(payload) >= 2
	case entity.FamilyPose:
		return len(payload) >= 3
	case entity.FamilyStress:
		return len(payload) >= 1
	}
	return false
}
