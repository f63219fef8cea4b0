package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// countingListener is a simple Listener used to verify fan-out behavior.
type countingListener struct {
	mu sync.Mutex

	sessions  int
	phases    []Phase
	accepted  int
	ignored   int
	recorded  []Step
	dropped   []error
	fallbacks []error
}

func (l *countingListener) OnSessionStarted(ctx context.Context, sessionID string, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions++
}

func (l *countingListener) OnPhaseChanged(ctx context.Context, sessionID string, from, to Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phases = append(l.phases, to)
}

func (l *countingListener) OnCandidateAccepted(ctx context.Context, sessionID string, c StepCandidate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accepted++
}

func (l *countingListener) OnCandidateIgnored(ctx context.Context, phase Phase, c StepCandidate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ignored++
}

func (l *countingListener) OnStepRecorded(ctx context.Context, sessionID string, step Step, annotated bool, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recorded = append(l.recorded, step)
}

func (l *countingListener) OnStepDropped(ctx context.Context, sessionID string, c StepCandidate, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropped = append(l.dropped, err)
}

func (l *countingListener) OnAnnotationFallback(ctx context.Context, sessionID string, c StepCandidate, reason error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fallbacks = append(l.fallbacks, reason)
}

func TestNewCompositeListener_FiltersNil(t *testing.T) {
	require.IsType(t, NoopListener{}, NewCompositeListener())
	require.IsType(t, NoopListener{}, NewCompositeListener(nil, nil))

	single := &countingListener{}
	require.Same(t, single, NewCompositeListener(nil, single))
}

func TestCompositeListener_FansOut(t *testing.T) {
	ctx := context.Background()
	a, b := &countingListener{}, &countingListener{}
	l := NewCompositeListener(a, nil, b)

	cand := StepCandidate{EventType: EventLeftClick, ElementDescription: "Submit"}
	l.OnSessionStarted(ctx, "s1", "Login Flow")
	l.OnPhaseChanged(ctx, "s1", PhaseIdle, PhaseRecording)
	l.OnCandidateAccepted(ctx, "s1", cand)
	l.OnCandidateIgnored(ctx, PhasePaused, cand)
	l.OnStepRecorded(ctx, "s1", Step{StepNumber: 1}, true, time.Millisecond)
	l.OnStepDropped(ctx, "s1", cand, ErrCaptureFailed)
	l.OnAnnotationFallback(ctx, "s1", cand, ErrTargetUnreachable)

	for _, c := range []*countingListener{a, b} {
		require.Equal(t, 1, c.sessions)
		require.Equal(t, []Phase{PhaseRecording}, c.phases)
		require.Equal(t, 1, c.accepted)
		require.Equal(t, 1, c.ignored)
		require.Len(t, c.recorded, 1)
		require.True(t, errors.Is(c.dropped[0], ErrCaptureFailed))
		require.True(t, errors.Is(c.fallbacks[0], ErrTargetUnreachable))
	}
}

func TestLoggingListener_WritesStructuredEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggingListener(zap.New(core))
	ctx := context.Background()

	l.OnSessionStarted(ctx, "s1", "Login Flow")
	l.OnStepRecorded(ctx, "s1", Step{StepNumber: 3, EventType: EventRightClick}, false, 2*time.Millisecond)
	l.OnAnnotationFallback(ctx, "s1", StepCandidate{EventType: EventLeftClick}, ErrAnnotationUnavailable)

	started := logs.FilterMessage("recording_started").All()
	require.Len(t, started, 1)
	require.Equal(t, "Login Flow", started[0].ContextMap()["test_plan"])

	recorded := logs.FilterMessage("step_recorded").All()
	require.Len(t, recorded, 1)
	require.Equal(t, int64(3), recorded[0].ContextMap()["step_number"])
	require.Equal(t, false, recorded[0].ContextMap()["annotated"])

	fallback := logs.FilterMessage("annotation_fallback").All()
	require.Len(t, fallback, 1)
	require.Equal(t, zapcore.WarnLevel, fallback[0].Level)
}

func TestNewLoggingListener_NilLoggerIsSafe(t *testing.T) {
	l := NewLoggingListener(nil)
	require.NotPanics(t, func() {
		l.OnPhaseChanged(context.Background(), "s1", PhaseRecording, PhasePaused)
	})
}

func TestBasicMetrics_Snapshot(t *testing.T) {
	ctx := context.Background()
	m := &BasicMetrics{}
	cand := StepCandidate{EventType: EventLeftClick}

	m.OnSessionStarted(ctx, "s1", "plan")
	for i := 0; i < 3; i++ {
		m.OnCandidateAccepted(ctx, "s1", cand)
	}
	m.OnCandidateIgnored(ctx, PhasePaused, cand)
	m.OnStepRecorded(ctx, "s1", Step{StepNumber: 1}, true, 10*time.Millisecond)
	m.OnStepRecorded(ctx, "s1", Step{StepNumber: 2}, false, 30*time.Millisecond)
	m.OnAnnotationFallback(ctx, "s1", cand, ErrTargetUnreachable)

	snap := m.Snapshot()
	require.Equal(t, int64(1), snap.SessionsStarted)
	require.Equal(t, int64(3), snap.CandidatesAccepted)
	require.Equal(t, int64(1), snap.CandidatesIgnored)
	require.Equal(t, int64(2), snap.StepsRecorded)
	require.Equal(t, int64(1), snap.StepsAnnotated)
	require.Equal(t, int64(1), snap.AnnotationFallbacks)
	require.Equal(t, int64(1), snap.InFlight)
	require.Equal(t, 20*time.Millisecond, snap.AvgPipelineDuration)
}
