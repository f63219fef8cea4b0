package recorder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// Dispatcher maps wire messages onto Recorder operations. It is shared by
// every transport (bus, websocket, HTTP).
type Dispatcher struct {
	rec    api.Recorder
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher for rec. A nil logger disables logging.
func NewDispatcher(rec api.Recorder, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{rec: rec, logger: logger}
}

// Handle executes msg and returns the reply payload. origin is the tab the
// message arrived from, if the transport knows it; otherwise msg.TabID is
// used. Unknown message types are logged and return api.ErrUnknownCommand,
// after which the transport sends no reply.
func (d *Dispatcher) Handle(ctx context.Context, msg api.Message, origin string) (any, error) {
	switch msg.Type {
	case api.MsgStartRecording:
		return d.rec.Start(ctx, msg.TestPlanName), nil
	case api.MsgPauseRecording:
		return d.rec.Pause(ctx), nil
	case api.MsgResumeRecording:
		return d.rec.Resume(ctx), nil
	case api.MsgStopRecording:
		return d.rec.Stop(ctx), nil
	case api.MsgGetRecordingState:
		return api.NewStateReply(d.rec.State(ctx)), nil
	case api.MsgEventRecorded:
		tabID := origin
		if tabID == "" {
			tabID = msg.TabID
		}
		return d.rec.RecordEvent(ctx, tabID, msg.Candidate()), nil
	default:
		d.logger.Warn("unknown message type", zap.String("type", string(msg.Type)))
		return nil, fmt.Errorf("%w: %q", api.ErrUnknownCommand, msg.Type)
	}
}
