package api

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Listener receives callbacks from the recorder for logging and metrics.
//
// Implementations should be fast and non-blocking; callbacks run on the
// recorder's command path and on pipeline workers.
type Listener interface {
	// OnSessionStarted is called when START opens a new session, including
	// a restart while a session is already open.
	OnSessionStarted(ctx context.Context, sessionID string, testPlanName string)

	// OnPhaseChanged is called after every accepted command that changes phase.
	OnPhaseChanged(ctx context.Context, sessionID string, from, to Phase)

	// OnCandidateAccepted is called when a candidate arrives while Recording
	// and its pipeline has been scheduled.
	OnCandidateAccepted(ctx context.Context, sessionID string, c StepCandidate)

	// OnCandidateIgnored is called for candidates discarded because the
	// recorder was not Recording.
	OnCandidateIgnored(ctx context.Context, phase Phase, c StepCandidate)

	// OnStepRecorded is called after a step has been appended. d is the time
	// from acceptance to append.
	OnStepRecorded(ctx context.Context, sessionID string, step Step, annotated bool, d time.Duration)

	// OnStepDropped is called when a pipeline ends without appending, e.g.
	// capture failed or the session was replaced while the pipeline ran.
	OnStepDropped(ctx context.Context, sessionID string, c StepCandidate, err error)

	// OnAnnotationFallback is called when the raw capture is used because
	// annotation was unreachable or returned nothing.
	OnAnnotationFallback(ctx context.Context, sessionID string, c StepCandidate, reason error)
}

// NoopListener is a Listener that does nothing.
// It is used as the default when no listener is configured.
type NoopListener struct{}

func (NoopListener) OnSessionStarted(ctx context.Context, sessionID string, name string)        {}
func (NoopListener) OnPhaseChanged(ctx context.Context, sessionID string, from, to Phase)       {}
func (NoopListener) OnCandidateAccepted(ctx context.Context, sessionID string, c StepCandidate) {}
func (NoopListener) OnCandidateIgnored(ctx context.Context, phase Phase, c StepCandidate)       {}
func (NoopListener) OnStepRecorded(ctx context.Context, sessionID string, step Step, annotated bool, d time.Duration) {
}
func (NoopListener) OnStepDropped(ctx context.Context, sessionID string, c StepCandidate, err error) {
}
func (NoopListener) OnAnnotationFallback(ctx context.Context, sessionID string, c StepCandidate, reason error) {
}

// CompositeListener fans out callbacks to multiple listeners.
type CompositeListener struct {
	listeners []Listener
}

// NewCompositeListener creates a Listener that forwards callbacks to each
// non-nil listener in ls.
func NewCompositeListener(ls ...Listener) Listener {
	filtered := make([]Listener, 0, len(ls))
	for _, l := range ls {
		if l != nil {
			filtered = append(filtered, l)
		}
	}
	if len(filtered) == 0 {
		return NoopListener{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeListener{listeners: filtered}
}

func (c *CompositeListener) OnSessionStarted(ctx context.Context, sessionID string, name string) {
	for _, l := range c.listeners {
		l.OnSessionStarted(ctx, sessionID, name)
	}
}

func (c *CompositeListener) OnPhaseChanged(ctx context.Context, sessionID string, from, to Phase) {
	for _, l := range c.listeners {
		l.OnPhaseChanged(ctx, sessionID, from, to)
	}
}

func (c *CompositeListener) OnCandidateAccepted(ctx context.Context, sessionID string, cand StepCandidate) {
	for _, l := range c.listeners {
		l.OnCandidateAccepted(ctx, sessionID, cand)
	}
}

func (c *CompositeListener) OnCandidateIgnored(ctx context.Context, phase Phase, cand StepCandidate) {
	for _, l := range c.listeners {
		l.OnCandidateIgnored(ctx, phase, cand)
	}
}

func (c *CompositeListener) OnStepRecorded(ctx context.Context, sessionID string, step Step, annotated bool, d time.Duration) {
	for _, l := range c.listeners {
		l.OnStepRecorded(ctx, sessionID, step, annotated, d)
	}
}

func (c *CompositeListener) OnStepDropped(ctx context.Context, sessionID string, cand StepCandidate, err error) {
	for _, l := range c.listeners {
		l.OnStepDropped(ctx, sessionID, cand, err)
	}
}

func (c *CompositeListener) OnAnnotationFallback(ctx context.Context, sessionID string, cand StepCandidate, reason error) {
	for _, l := range c.listeners {
		l.OnAnnotationFallback(ctx, sessionID, cand, reason)
	}
}

// LoggingListener writes structured logs using zap.
type LoggingListener struct {
	Logger *zap.Logger
}

// NewLoggingListener creates a Listener that logs recorder lifecycle events
// using the provided logger. If logger is nil, zap.L() is used.
func NewLoggingListener(logger *zap.Logger) Listener {
	if logger == nil {
		logger = zap.L()
	}
	return &LoggingListener{Logger: logger}
}

func (l *LoggingListener) OnSessionStarted(ctx context.Context, sessionID string, name string) {
	l.Logger.Info("recording_started",
		zap.String("session_id", sessionID),
		zap.String("test_plan", name),
	)
}

func (l *LoggingListener) OnPhaseChanged(ctx context.Context, sessionID string, from, to Phase) {
	l.Logger.Info("phase_changed",
		zap.String("session_id", sessionID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
}

func (l *LoggingListener) OnCandidateAccepted(ctx context.Context, sessionID string, c StepCandidate) {
	l.Logger.Debug("candidate_accepted",
		zap.String("session_id", sessionID),
		zap.String("event_type", c.EventType),
		zap.String("element", c.ElementDescription),
	)
}

func (l *LoggingListener) OnCandidateIgnored(ctx context.Context, phase Phase, c StepCandidate) {
	l.Logger.Debug("candidate_ignored",
		zap.String("phase", string(phase)),
		zap.String("event_type", c.EventType),
	)
}

func (l *LoggingListener) OnStepRecorded(ctx context.Context, sessionID string, step Step, annotated bool, d time.Duration) {
	l.Logger.Info("step_recorded",
		zap.String("session_id", sessionID),
		zap.Int("step_number", step.StepNumber),
		zap.String("event_type", step.EventType),
		zap.Bool("annotated", annotated),
		zap.Duration("duration", d),
	)
}

func (l *LoggingListener) OnStepDropped(ctx context.Context, sessionID string, c StepCandidate, err error) {
	l.Logger.Warn("step_dropped",
		zap.String("session_id", sessionID),
		zap.String("event_type", c.EventType),
		zap.Error(err),
	)
}

func (l *LoggingListener) OnAnnotationFallback(ctx context.Context, sessionID string, c StepCandidate, reason error) {
	l.Logger.Warn("annotation_fallback",
		zap.String("session_id", sessionID),
		zap.String("event_type", c.EventType),
		zap.Error(reason),
	)
}

// BasicMetrics collects simple counters and the aggregate pipeline latency.
// It implements Listener, and can be combined with LoggingListener via
// NewCompositeListener.
type BasicMetrics struct {
	NoopListener

	sessionsStarted    atomic.Int64
	candidatesAccepted atomic.Int64
	candidatesIgnored  atomic.Int64
	stepsRecorded      atomic.Int64
	stepsAnnotated     atomic.Int64
	stepsDropped       atomic.Int64
	fallbacks          atomic.Int64
	totalPipeline      atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	SessionsStarted    int64
	CandidatesAccepted int64
	CandidatesIgnored  int64
	InFlight           int64

	StepsRecorded       int64
	StepsAnnotated      int64
	StepsDropped        int64
	AnnotationFallbacks int64
	AvgPipelineDuration time.Duration
}

func (m *BasicMetrics) OnSessionStarted(ctx context.Context, sessionID string, name string) {
	m.sessionsStarted.Add(1)
}

func (m *BasicMetrics) OnCandidateAccepted(ctx context.Context, sessionID string, c StepCandidate) {
	m.candidatesAccepted.Add(1)
}

func (m *BasicMetrics) OnCandidateIgnored(ctx context.Context, phase Phase, c StepCandidate) {
	m.candidatesIgnored.Add(1)
}

func (m *BasicMetrics) OnStepRecorded(ctx context.Context, sessionID string, step Step, annotated bool, d time.Duration) {
	m.stepsRecorded.Add(1)
	if annotated {
		m.stepsAnnotated.Add(1)
	}
	m.totalPipeline.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnStepDropped(ctx context.Context, sessionID string, c StepCandidate, err error) {
	m.stepsDropped.Add(1)
}

func (m *BasicMetrics) OnAnnotationFallback(ctx context.Context, sessionID string, c StepCandidate, reason error) {
	m.fallbacks.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	accepted := m.candidatesAccepted.Load()
	recorded := m.stepsRecorded.Load()
	dropped := m.stepsDropped.Load()
	totalNs := m.totalPipeline.Load()

	var avg time.Duration
	if recorded > 0 {
		avg = time.Duration(totalNs / recorded)
	}

	return BasicMetricsSnapshot{
		SessionsStarted:     m.sessionsStarted.Load(),
		CandidatesAccepted:  accepted,
		CandidatesIgnored:   m.candidatesIgnored.Load(),
		InFlight:            accepted - recorded - dropped,
		StepsRecorded:       recorded,
		StepsAnnotated:      m.stepsAnnotated.Load(),
		StepsDropped:        dropped,
		AnnotationFallbacks: m.fallbacks.Load(),
		AvgPipelineDuration: avg,
	}
}
