package observer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/bus"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// CandidateSink receives step candidates from a page. recorder.Client
// implements it for recorders reachable over the bus.
type CandidateSink interface {
	RecordEvent(ctx context.Context, tabID string, c api.StepCandidate) (api.Ack, error)
}

// RecorderSink adapts an in-process api.Recorder to CandidateSink.
type RecorderSink struct {
	Recorder api.Recorder
}

func (s RecorderSink) RecordEvent(ctx context.Context, tabID string, c api.StepCandidate) (api.Ack, error) {
	return s.Recorder.RecordEvent(ctx, tabID, c), nil
}

// PageObserver is the observer attached to one page (tab). It forwards
// qualifying DOM events to a CandidateSink and answers annotation requests
// on bus.AnnotateSubject(tabID) while attached.
type PageObserver struct {
	tabID  string
	bus    bus.MessageBus
	sink   CandidateSink
	logger *zap.Logger

	mu       sync.Mutex
	viewport api.Viewport
	sub      bus.Subscription
}

// NewPageObserver creates an observer for tabID. It does not answer
// annotation requests until Attach is called.
func NewPageObserver(tabID string, b bus.MessageBus, sink CandidateSink, logger *zap.Logger) *PageObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageObserver{
		tabID:  tabID,
		bus:    b,
		sink:   sink,
		logger: logger.With(zap.String("tab_id", tabID)),
	}
}

// TabID returns the page identifier.
func (p *PageObserver) TabID() string {
	return p.tabID
}

// Attach subscribes to annotation requests for this page.
func (p *PageObserver) Attach(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub != nil {
		return nil
	}

	sub, err := p.bus.Subscribe(ctx, bus.AnnotateSubject(p.tabID), p.handleAnnotate)
	if err != nil {
		return err
	}
	p.sub = sub
	return nil
}

// Detach stops answering annotation requests. Requests that arrive later
// find no responder and the recorder falls back to the raw capture.
func (p *PageObserver) Detach() error {
	p.mu.Lock()
	sub := p.sub
	p.sub = nil
	p.mu.Unlock()

	if sub == nil {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil && !errors.Is(err, bus.ErrClosed) {
		return err
	}
	return nil
}

// SetViewport records the page's current visible size, used to scale
// bounding rects onto captures.
func (p *PageObserver) SetViewport(vp api.Viewport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewport = vp
}

// Viewport returns the last size reported by SetViewport.
func (p *PageObserver) Viewport() api.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

// HandleDOMEvent qualifies ev and, if it is a recordable interaction, sends
// the candidate to the sink. It reports whether a candidate was sent.
func (p *PageObserver) HandleDOMEvent(ctx context.Context, ev DOMEvent) (bool, error) {
	c, ok := Qualify(ev)
	if !ok {
		return false, nil
	}
	if _, err := p.sink.RecordEvent(ctx, p.tabID, c); err != nil {
		p.logger.Warn("failed to report event", zap.String("event_type", c.EventType), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (p *PageObserver) handleAnnotate(m *bus.Message) []byte {
	var reply api.AnnotateReply

	var req api.AnnotateRequest
	if err := json.Unmarshal(m.Data, &req); err != nil {
		p.logger.Warn("bad annotation request", zap.Error(err))
	} else if img, err := Annotate(req.Screenshot, req.BoundingRect, p.Viewport()); err != nil {
		p.logger.Warn("annotation failed", zap.Error(err))
	} else {
		reply.AnnotatedScreenshot = &img
	}

	out, err := json.Marshal(reply)
	if err != nil {
		return []byte("{}")
	}
	return out
}
