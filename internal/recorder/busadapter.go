package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/bus"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// BusAnnotator sends ANNOTATE_SCREENSHOT to the page observer subscribed on
// bus.AnnotateSubject(tabID).
type BusAnnotator struct {
	Bus     bus.MessageBus
	Timeout time.Duration
}

func (a BusAnnotator) Annotate(ctx context.Context, tabID string, req api.AnnotateRequest) (api.Image, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return api.Image{}, fmt.Errorf("%w: encode request: %v", api.ErrAnnotationUnavailable, err)
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultAnnotationTimeout
	}

	raw, err := a.Bus.Request(ctx, bus.AnnotateSubject(tabID), data, timeout)
	if err != nil {
		if isUnreachable(err) {
			return api.Image{}, fmt.Errorf("%w: tab %s: %v", api.ErrTargetUnreachable, tabID, err)
		}
		return api.Image{}, err
	}

	var reply api.AnnotateReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return api.Image{}, fmt.Errorf("%w: decode reply: %v", api.ErrAnnotationUnavailable, err)
	}
	if reply.AnnotatedScreenshot == nil || reply.AnnotatedScreenshot.IsZero() {
		return api.Image{}, fmt.Errorf("%w: no annotated screenshot", api.ErrAnnotationUnavailable)
	}
	return *reply.AnnotatedScreenshot, nil
}

func isUnreachable(err error) bool {
	return errors.Is(err, bus.ErrNoResponders) ||
		errors.Is(err, bus.ErrTimeout) ||
		errors.Is(err, bus.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// BusBroadcaster publishes STEPS_UPDATED on bus.SubjectSteps.
type BusBroadcaster struct {
	Bus bus.MessageBus
}

func (b BusBroadcaster) BroadcastSteps(ctx context.Context, steps []api.Step) error {
	data, err := json.Marshal(api.Message{Type: api.MsgStepsUpdated, Steps: steps})
	if err != nil {
		return err
	}
	return b.Bus.Publish(ctx, bus.SubjectSteps, data)
}

// ServeCommands answers requests on bus.SubjectCommand with d until the
// returned subscription is cancelled. Replies are the JSON form of the
// operation's result; undecodable or unknown messages get no reply.
func ServeCommands(ctx context.Context, b bus.MessageBus, d *Dispatcher, logger *zap.Logger) (bus.Subscription, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return b.Subscribe(ctx, bus.SubjectCommand, func(m *bus.Message) []byte {
		var msg api.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			logger.Warn("dropping undecodable command", zap.Error(err))
			return nil
		}
		reply, err := d.Handle(ctx, msg, "")
		if err != nil {
			return nil
		}
		out, err := json.Marshal(reply)
		if err != nil {
			logger.Warn("failed to encode reply", zap.String("type", string(msg.Type)), zap.Error(err))
			return nil
		}
		return out
	})
}

// Client sends commands to a Recorder served by ServeCommands, possibly in
// another process.
type Client struct {
	Bus     bus.MessageBus
	Timeout time.Duration
}

func (c Client) call(ctx context.Context, msg api.Message, out any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	raw, err := c.Bus.Request(ctx, bus.SubjectCommand, data, timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", msg.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", msg.Type, err)
	}
	return nil
}

func (c Client) Start(ctx context.Context, name string) (api.Ack, error) {
	var ack api.Ack
	err := c.call(ctx, api.Message{Type: api.MsgStartRecording, TestPlanName: name}, &ack)
	return ack, err
}

func (c Client) Pause(ctx context.Context) (api.Ack, error) {
	var ack api.Ack
	err := c.call(ctx, api.Message{Type: api.MsgPauseRecording}, &ack)
	return ack, err
}

func (c Client) Resume(ctx context.Context) (api.Ack, error) {
	var ack api.Ack
	err := c.call(ctx, api.Message{Type: api.MsgResumeRecording}, &ack)
	return ack, err
}

func (c Client) Stop(ctx context.Context) (api.StopResult, error) {
	var res api.StopResult
	err := c.call(ctx, api.Message{Type: api.MsgStopRecording}, &res)
	return res, err
}

func (c Client) State(ctx context.Context) (api.StateReply, error) {
	var res api.StateReply
	err := c.call(ctx, api.Message{Type: api.MsgGetRecordingState}, &res)
	return res, err
}

// RecordEvent reports a candidate observed on tabID.
func (c Client) RecordEvent(ctx context.Context, tabID string, cand api.StepCandidate) (api.Ack, error) {
	msg := api.EventRecordedMessage(cand)
	msg.TabID = tabID
	var ack api.Ack
	err := c.call(ctx, msg, &ack)
	return ack, err
}
