package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// Requester sends a message to the browser bridge and waits for its reply.
type Requester interface {
	Request(ctx context.Context, msg api.Message) (api.Message, error)
}

// Bridge asks the attached browser extension to capture its visible tab.
// The extension answers CAPTURE_VISIBLE_TAB with CAPTURE_RESULT carrying
// either a screenshot or an error string.
type Bridge struct {
	mu   sync.RWMutex
	conn Requester
}

// NewBridge returns a Bridge with no extension attached.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach makes r the target of subsequent captures, replacing any previous
// connection.
func (b *Bridge) Attach(r Requester) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = r
}

// Detach clears the connection if it is still r.
func (b *Bridge) Detach(r Requester) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == r {
		b.conn = nil
	}
}

// Attached reports whether an extension connection is present.
func (b *Bridge) Attached() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil
}

func (b *Bridge) CaptureVisible(ctx context.Context) (api.Image, error) {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	if conn == nil {
		return Unavailable{}.CaptureVisible(ctx)
	}

	reply, err := conn.Request(ctx, api.Message{Type: api.MsgCaptureVisibleTab})
	if err != nil {
		return api.Image{}, fmt.Errorf("%w: %v", api.ErrCaptureFailed, err)
	}
	if reply.Error != "" {
		return api.Image{}, fmt.Errorf("%w: %s", api.ErrCaptureFailed, reply.Error)
	}
	if reply.Screenshot == nil || reply.Screenshot.IsZero() {
		return api.Image{}, fmt.Errorf("%w: empty capture", api.ErrCaptureFailed)
	}
	return *reply.Screenshot, nil
}
