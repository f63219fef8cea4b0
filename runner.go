package testrecorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/bus"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/observer"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/recorder"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/taskqueue"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/worker"
)

// LocalRunner bundles a message bus, a Recorder, an in-memory pipeline
// queue and a worker pool into a single process.
//
// Typical usage:
//
//	runner := testrecorder.NewLocalRunner(testrecorder.WithCapturer(cap))
//	_ = runner.Start(ctx, 2)
//	defer runner.Stop()
//
//	page, _ := runner.Page(ctx, "tab-1")
//	page.SetViewport(testrecorder.Viewport{Width: 1280, Height: 720})
//	_, _ = runner.Client.Start(ctx, "Login Flow")
//	_, _ = page.HandleDOMEvent(ctx, ev)
//	steps, _ := runner.WaitForSteps(ctx, 1)
type LocalRunner struct {
	// Bus carries commands, annotation requests and step broadcasts.
	Bus bus.MessageBus

	// Recorder is the state holder. Its commands are also served on Bus.
	Recorder *recorder.Recorder

	// Queue holds accepted candidates until a worker runs their pipeline.
	Queue *taskqueue.InMemoryQueue

	// Pool runs the pipelines.
	Pool *worker.Pool

	// Client talks to Recorder over Bus, the way a remote controller would.
	Client recorder.Client

	logger  *zap.Logger
	ownsBus bool

	mu      sync.Mutex
	cmdSub  bus.Subscription
	pages   map[string]*observer.PageObserver
	running bool
}

type runnerOptions struct {
	bus               bus.MessageBus
	capturer          Capturer
	listener          Listener
	logger            *zap.Logger
	queueCapacity     int
	captureTimeout    time.Duration
	annotationTimeout time.Duration
}

// RunnerOption configures NewLocalRunner.
type RunnerOption func(*runnerOptions)

// WithBus uses b instead of a private in-memory bus. The runner does not
// close a bus it did not create.
func WithBus(b bus.MessageBus) RunnerOption {
	return func(o *runnerOptions) { o.bus = b }
}

// WithCapturer sets the viewport capture capability.
func WithCapturer(c Capturer) RunnerOption {
	return func(o *runnerOptions) { o.capturer = c }
}

// WithListener sets the recorder's lifecycle listener.
func WithListener(l Listener) RunnerOption {
	return func(o *runnerOptions) { o.listener = l }
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(o *runnerOptions) { o.logger = l }
}

// WithQueueCapacity bounds the number of pipelines waiting for a worker.
// Candidates arriving while the queue is full are acknowledged and dropped.
func WithQueueCapacity(n int) RunnerOption {
	return func(o *runnerOptions) { o.queueCapacity = n }
}

// WithTimeouts bounds the capture and annotation suspensions of each
// pipeline. Zero keeps the default.
func WithTimeouts(capture, annotation time.Duration) RunnerOption {
	return func(o *runnerOptions) {
		o.captureTimeout = capture
		o.annotationTimeout = annotation
	}
}

// NewLocalRunner constructs a LocalRunner. Nothing runs until Start.
func NewLocalRunner(opts ...RunnerOption) *LocalRunner {
	o := runnerOptions{queueCapacity: 1024}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	ownsBus := false
	if o.bus == nil {
		o.bus = bus.NewMemoryBus()
		ownsBus = true
	}

	q := taskqueue.NewInMemoryQueue(o.queueCapacity)
	rec := recorder.New(recorder.Config{
		Capturer:          o.capturer,
		Annotator:         recorder.BusAnnotator{Bus: o.bus, Timeout: o.annotationTimeout},
		Broadcaster:       recorder.BusBroadcaster{Bus: o.bus},
		Queue:             q,
		Listener:          o.listener,
		Logger:            o.logger,
		CaptureTimeout:    o.captureTimeout,
		AnnotationTimeout: o.annotationTimeout,
	})

	return &LocalRunner{
		Bus:      o.bus,
		Recorder: rec,
		Queue:    q,
		Pool:     worker.NewPool(rec, q, o.logger),
		Client:   recorder.Client{Bus: o.bus},
		logger:   o.logger,
		ownsBus:  ownsBus,
		pages:    make(map[string]*observer.PageObserver),
	}
}

// Start serves recorder commands on the bus and starts concurrency
// pipeline workers.
//
// If Start is called more than once without Stop, it returns an error.
func (r *LocalRunner) Start(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("testrecorder: LocalRunner already started")
	}

	sub, err := recorder.ServeCommands(ctx, r.Bus, recorder.NewDispatcher(r.Recorder, r.logger), r.logger)
	if err != nil {
		return err
	}
	if err := r.Pool.Start(context.WithoutCancel(ctx), concurrency); err != nil {
		_ = sub.Unsubscribe()
		return err
	}
	r.cmdSub = sub
	r.running = true
	return nil
}

// Page returns the observer for tabID, attaching a new one on first use.
// Its candidates travel to the recorder over the bus.
func (r *LocalRunner) Page(ctx context.Context, tabID string) (*observer.PageObserver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pages[tabID]; ok {
		return p, nil
	}
	p := observer.NewPageObserver(tabID, r.Bus, r.Client, r.logger)
	if err := p.Attach(ctx); err != nil {
		return nil, err
	}
	r.pages[tabID] = p
	return p, nil
}

// ClosePage detaches the observer of tabID. Later annotation requests for
// that tab fall back to the raw capture.
func (r *LocalRunner) ClosePage(tabID string) error {
	r.mu.Lock()
	p, ok := r.pages[tabID]
	delete(r.pages, tabID)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return p.Detach()
}

// WaitForSteps polls the recorder until it holds at least n steps or ctx
// ends.
func (r *LocalRunner) WaitForSteps(ctx context.Context, n int) ([]Step, error) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if st := r.Recorder.State(ctx); len(st.Steps) >= n {
			return st.Steps, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown stops accepting pipelines, waits for queued ones to finish or
// ctx to end, then releases everything Start acquired.
func (r *LocalRunner) Shutdown(ctx context.Context) error {
	r.Queue.Close()

	drained := make(chan struct{})
	go func() {
		r.Pool.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
	}
	r.Stop()
	return err
}

// Stop cancels the workers, detaches every page and stops serving
// commands. Queued pipelines are abandoned. A stopped runner cannot be
// started again.
func (r *LocalRunner) Stop() {
	r.Pool.Stop()

	r.mu.Lock()
	pages := r.pages
	r.pages = make(map[string]*observer.PageObserver)
	sub := r.cmdSub
	r.cmdSub = nil
	r.running = false
	r.mu.Unlock()

	for _, p := range pages {
		_ = p.Detach()
	}
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if r.ownsBus {
		_ = r.Bus.Close()
	}
}
