package recorder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

func TestDispatcher_MapsMessagesToOperations(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRecorder(t, alwaysAnnotate())
	d := NewDispatcher(r, nil)

	reply, err := d.Handle(ctx, api.Message{Type: api.MsgStartRecording, TestPlanName: "Checkout"}, "")
	require.NoError(t, err)
	require.Equal(t, api.Ack{Status: api.StatusRecordingStarted}, reply)

	rect := submitRect
	reply, err = d.Handle(ctx, api.Message{
		Type:               api.MsgEventRecorded,
		EventType:          api.EventLeftClick,
		ElementDescription: "Pay",
		BoundingRect:       &rect,
		TabID:              "ignored-when-origin-known",
	}, "tab-3")
	require.NoError(t, err)
	require.Equal(t, api.Ack{Status: api.StatusOK}, reply)
	r.Wait()

	reply, err = d.Handle(ctx, api.Message{Type: api.MsgPauseRecording}, "")
	require.NoError(t, err)
	require.Equal(t, api.Ack{Status: api.StatusRecordingPaused}, reply)

	reply, err = d.Handle(ctx, api.Message{Type: api.MsgGetRecordingState}, "")
	require.NoError(t, err)
	state := reply.(api.StateReply)
	require.Equal(t, "Checkout", state.TestPlanName)
	require.True(t, state.IsRecording)
	require.True(t, state.IsPaused)
	require.Len(t, state.Steps, 1)

	reply, err = d.Handle(ctx, api.Message{Type: api.MsgResumeRecording}, "")
	require.NoError(t, err)
	require.Equal(t, api.Ack{Status: api.StatusRecordingResumed}, reply)

	reply, err = d.Handle(ctx, api.Message{Type: api.MsgStopRecording}, "")
	require.NoError(t, err)
	stop := reply.(api.StopResult)
	require.Equal(t, "Checkout", stop.TestPlanName)
	require.Len(t, stop.Steps, 1)
	require.Equal(t, "Pay", stop.Steps[0].ElementDescription)
}

func TestDispatcher_EventUsesMessageTabWithoutOrigin(t *testing.T) {
	ctx := context.Background()
	var gotTab string
	r, _, _ := newTestRecorder(t, annotateFunc(func(ctx context.Context, tabID string, req api.AnnotateRequest) (api.Image, error) {
		gotTab = tabID
		return annotatedShot, nil
	}))
	d := NewDispatcher(r, nil)

	r.Start(ctx, "plan")
	msg := api.EventRecordedMessage(api.StepCandidate{EventType: api.EventLeftClick})
	msg.TabID = "tab-7"
	_, err := d.Handle(ctx, msg, "")
	require.NoError(t, err)
	r.Wait()

	require.Equal(t, "tab-7", gotTab)
}

func TestDispatcher_UnknownTypeLogsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r, _, _ := newTestRecorder(t, nil)
	d := NewDispatcher(r, zap.New(core))

	reply, err := d.Handle(context.Background(), api.Message{Type: "REWIND"}, "")
	require.Nil(t, reply)
	require.True(t, errors.Is(err, api.ErrUnknownCommand))

	entries := logs.FilterMessage("unknown message type").All()
	require.Len(t, entries, 1)
	require.Equal(t, "REWIND", entries[0].ContextMap()["type"])
	require.Equal(t, api.PhaseIdle, r.State(context.Background()).Phase)
}
