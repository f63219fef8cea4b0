package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/capture"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/taskqueue"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// ErrSessionReplaced is reported to listeners when a pipeline finishes after
// a new START replaced the session that accepted its candidate.
var ErrSessionReplaced = errors.New("recorder: session replaced before step was appended")

const (
	DefaultCaptureTimeout    = 5 * time.Second
	DefaultAnnotationTimeout = 5 * time.Second
)

// Annotator asks the page observer of tabID to draw the candidate's box onto
// the raw capture.
type Annotator interface {
	Annotate(ctx context.Context, tabID string, req api.AnnotateRequest) (api.Image, error)
}

// Broadcaster delivers STEPS_UPDATED to listening controllers.
type Broadcaster interface {
	BroadcastSteps(ctx context.Context, steps []api.Step) error
}

// Config describes how to construct a Recorder.
type Config struct {
	Capturer    capture.Capturer
	Annotator   Annotator
	Broadcaster Broadcaster

	// Queue receives accepted candidates for pipeline workers. When nil,
	// each pipeline runs on its own goroutine.
	Queue taskqueue.Queue

	Listener api.Listener
	Logger   *zap.Logger

	CaptureTimeout    time.Duration
	AnnotationTimeout time.Duration
}

// Recorder owns the recording state and orchestrates the capture/annotate
// pipeline for each accepted candidate.
type Recorder struct {
	capturer    capture.Capturer
	annotator   Annotator
	broadcaster Broadcaster
	queue       taskqueue.Queue
	listener    api.Listener
	logger      *zap.Logger

	captureTimeout    time.Duration
	annotationTimeout time.Duration

	mu    sync.Mutex
	state api.State

	// bcastMu orders broadcasts so a controller never sees an older step
	// list after a newer one.
	bcastMu sync.Mutex

	inflight sync.WaitGroup
}

var _ api.Recorder = (*Recorder)(nil)

// New creates a Recorder in the Idle phase.
func New(cfg Config) *Recorder {
	r := &Recorder{
		capturer:          cfg.Capturer,
		annotator:         cfg.Annotator,
		broadcaster:       cfg.Broadcaster,
		queue:             cfg.Queue,
		listener:          cfg.Listener,
		logger:            cfg.Logger,
		captureTimeout:    cfg.CaptureTimeout,
		annotationTimeout: cfg.AnnotationTimeout,
		state: api.State{
			Phase:     api.PhaseIdle,
			UpdatedAt: time.Now(),
		},
	}
	if r.capturer == nil {
		r.capturer = capture.Unavailable{}
	}
	if r.listener == nil {
		r.listener = api.NoopListener{}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.captureTimeout <= 0 {
		r.captureTimeout = DefaultCaptureTimeout
	}
	if r.annotationTimeout <= 0 {
		r.annotationTimeout = DefaultAnnotationTimeout
	}
	return r
}

// Start opens a new session with an empty step list, replacing any open one.
// Pipelines still running for the replaced session are not cancelled, but
// their steps are discarded when they finish and reported to the listener
// as dropped with ErrSessionReplaced.
func (r *Recorder) Start(ctx context.Context, name string) api.Ack {
	sessionID := ulid.Make().String()
	planName := api.NormalizePlanName(name)

	r.mu.Lock()
	from := r.state.Phase
	r.state = api.State{
		SessionID:    sessionID,
		Phase:        api.PhaseRecording,
		TestPlanName: planName,
		Steps:        []api.Step{},
		UpdatedAt:    time.Now(),
	}
	r.mu.Unlock()

	r.listener.OnSessionStarted(ctx, sessionID, planName)
	r.listener.OnPhaseChanged(ctx, sessionID, from, api.PhaseRecording)
	return api.Ack{Status: api.StatusRecordingStarted}
}

// Pause is a no-op unless the recorder is Recording.
func (r *Recorder) Pause(ctx context.Context) api.Ack {
	r.transition(ctx, api.PhaseRecording, api.PhasePaused)
	return api.Ack{Status: api.StatusRecordingPaused}
}

// Resume is a no-op unless the recorder is Paused.
func (r *Recorder) Resume(ctx context.Context) api.Ack {
	r.transition(ctx, api.PhasePaused, api.PhaseRecording)
	return api.Ack{Status: api.StatusRecordingResumed}
}

func (r *Recorder) transition(ctx context.Context, from, to api.Phase) {
	r.mu.Lock()
	if r.state.Phase != from {
		r.mu.Unlock()
		return
	}
	r.state.Phase = to
	r.state.UpdatedAt = time.Now()
	sessionID := r.state.SessionID
	r.mu.Unlock()

	r.listener.OnPhaseChanged(ctx, sessionID, from, to)
}

// Stop closes the session from any phase. Pipelines still in flight for the
// stopped session keep running and may append after Stop returns.
func (r *Recorder) Stop(ctx context.Context) api.StopResult {
	r.mu.Lock()
	from := r.state.Phase
	r.state.Phase = api.PhaseStopped
	r.state.UpdatedAt = time.Now()
	sessionID := r.state.SessionID
	res := api.StopResult{
		Status:       api.StatusRecordingStopped,
		Steps:        api.CloneSteps(r.state.Steps),
		TestPlanName: r.state.TestPlanName,
	}
	r.mu.Unlock()

	if from != api.PhaseStopped {
		r.listener.OnPhaseChanged(ctx, sessionID, from, api.PhaseStopped)
	}
	return res
}

func (r *Recorder) State(ctx context.Context) api.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Steps = api.CloneSteps(r.state.Steps)
	return s
}

// RecordEvent acknowledges c immediately. If the recorder is Recording the
// candidate's pipeline is scheduled; otherwise c is discarded.
func (r *Recorder) RecordEvent(ctx context.Context, tabID string, c api.StepCandidate) api.Ack {
	ack := api.Ack{Status: api.StatusOK}

	r.mu.Lock()
	phase := r.state.Phase
	sessionID := r.state.SessionID
	r.mu.Unlock()

	if phase != api.PhaseRecording {
		r.listener.OnCandidateIgnored(ctx, phase, c)
		return ack
	}

	task := taskqueue.Task{
		ID:         ulid.Make().String(),
		SessionID:  sessionID,
		TabID:      tabID,
		Candidate:  c,
		AcceptedAt: time.Now(),
	}
	r.listener.OnCandidateAccepted(ctx, sessionID, c)

	if r.queue == nil {
		r.inflight.Add(1)
		go func() {
			defer r.inflight.Done()
			r.ProcessCandidate(context.WithoutCancel(ctx), task)
		}()
		return ack
	}

	if err := r.queue.Enqueue(ctx, task); err != nil {
		r.logger.Warn("failed to schedule step pipeline",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		r.listener.OnStepDropped(ctx, sessionID, c, err)
	}
	return ack
}

// Wait blocks until pipelines started without a queue have finished.
func (r *Recorder) Wait() {
	r.inflight.Wait()
}

// ProcessCandidate runs one pipeline: capture, optional annotation, append,
// broadcast. It never returns an error; failures are downgraded to a dropped
// step or a raw screenshot.
func (r *Recorder) ProcessCandidate(ctx context.Context, t taskqueue.Task) {
	c := t.Candidate

	raw, err := r.capture(ctx)
	if err != nil {
		r.logger.Warn("capture failed, dropping step",
			zap.String("session_id", t.SessionID),
			zap.String("event_type", c.EventType),
			zap.Error(err),
		)
		r.listener.OnStepDropped(ctx, t.SessionID, c, err)
		return
	}

	shot, annotated := raw, false
	if t.TabID == "" {
		r.logger.Debug("origin page unknown, storing raw screenshot",
			zap.String("session_id", t.SessionID),
		)
	} else if img, err := r.annotate(ctx, t.TabID, c.BoundingRect, raw); err != nil {
		r.logger.Warn("annotation unavailable, storing raw screenshot",
			zap.String("session_id", t.SessionID),
			zap.String("tab_id", t.TabID),
			zap.Error(err),
		)
		r.listener.OnAnnotationFallback(ctx, t.SessionID, c, err)
	} else {
		shot, annotated = img, true
	}

	step, ok := r.appendStep(t.SessionID, c, shot)
	if !ok {
		r.listener.OnStepDropped(ctx, t.SessionID, c, ErrSessionReplaced)
		return
	}
	r.listener.OnStepRecorded(ctx, t.SessionID, step, annotated, time.Since(t.AcceptedAt))

	r.broadcast(ctx)
}

func (r *Recorder) capture(ctx context.Context) (api.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, r.captureTimeout)
	defer cancel()

	img, err := r.capturer.CaptureVisible(ctx)
	if err != nil {
		return api.Image{}, err
	}
	if img.IsZero() {
		return api.Image{}, fmt.Errorf("%w: empty image", api.ErrCaptureFailed)
	}
	return img, nil
}

func (r *Recorder) annotate(ctx context.Context, tabID string, rect api.Rect, raw api.Image) (api.Image, error) {
	if r.annotator == nil {
		return api.Image{}, fmt.Errorf("%w: no annotator configured", api.ErrAnnotationUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, r.annotationTimeout)
	defer cancel()

	img, err := r.annotator.Annotate(ctx, tabID, api.AnnotateRequest{
		Type:         api.MsgAnnotateScreenshot,
		BoundingRect: rect,
		Screenshot:   raw,
	})
	if err != nil {
		return api.Image{}, err
	}
	if img.IsZero() {
		return api.Image{}, fmt.Errorf("%w: empty reply", api.ErrAnnotationUnavailable)
	}
	return img, nil
}

// appendStep adds a step numbered len(steps)+1 if sessionID is still the
// current session.
func (r *Recorder) appendStep(sessionID string, c api.StepCandidate, shot api.Image) (api.Step, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.SessionID != sessionID {
		return api.Step{}, false
	}

	img := shot
	step := api.Step{
		StepNumber:         len(r.state.Steps) + 1,
		EventType:          c.EventType,
		ElementDescription: c.ElementDescription,
		Screenshot:         &img,
	}
	r.state.Steps = append(r.state.Steps, step)
	r.state.UpdatedAt = time.Now()
	return step, true
}

func (r *Recorder) broadcast(ctx context.Context) {
	if r.broadcaster == nil {
		return
	}

	r.bcastMu.Lock()
	defer r.bcastMu.Unlock()

	r.mu.Lock()
	steps := api.CloneSteps(r.state.Steps)
	r.mu.Unlock()

	if err := r.broadcaster.BroadcastSteps(ctx, steps); err != nil {
		r.logger.Debug("steps broadcast failed", zap.Error(err))
	}
}
