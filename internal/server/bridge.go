package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/capture"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// errBridgeGone is returned to pending captures when the extension
// disconnects.
var errBridgeGone = errors.New("bridge disconnected")

// bridgeConn correlates requests sent to the extension with its replies by
// requestId.
type bridgeConn struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan api.Message
	done    chan struct{}
}

var _ capture.Requester = (*bridgeConn)(nil)

func newBridgeConn(conn *websocket.Conn) *bridgeConn {
	return &bridgeConn{
		conn:    conn,
		pending: make(map[string]chan api.Message),
		done:    make(chan struct{}),
	}
}

func (b *bridgeConn) Request(ctx context.Context, msg api.Message) (api.Message, error) {
	msg.RequestID = ulid.Make().String()
	ch := make(chan api.Message, 1)

	b.mu.Lock()
	b.pending[msg.RequestID] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, msg.RequestID)
		b.mu.Unlock()
	}()

	if err := wsjson.Write(ctx, b.conn, msg); err != nil {
		return api.Message{}, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-b.done:
		return api.Message{}, errBridgeGone
	case <-ctx.Done():
		return api.Message{}, ctx.Err()
	}
}

// resolve hands msg to the request waiting for it.
func (b *bridgeConn) resolve(msg api.Message) bool {
	if msg.RequestID == "" {
		return false
	}
	b.mu.Lock()
	ch, ok := b.pending[msg.RequestID]
	b.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
	default:
	}
	return true
}

// handleBridge attaches the extension connection to the capture bridge.
// Messages that are not replies to a capture are dispatched as commands
// and answered with the same requestId.
func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		http.Error(w, "capture bridge not configured", http.StatusServiceUnavailable)
		return
	}
	conn, ok := s.accept(w, r, "bridge")
	if !ok {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	startPing(ctx, conn)

	bc := newBridgeConn(conn)
	s.bridge.Attach(bc)
	s.logger.Info("capture bridge attached")
	defer func() {
		s.bridge.Detach(bc)
		close(bc.done)
		s.logger.Info("capture bridge detached")
	}()

	for {
		var msg api.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		if bc.resolve(msg) {
			continue
		}
		reply, err := s.dispatcher.Handle(ctx, msg, "")
		if err != nil {
			continue
		}
		if err := writeFrame(ctx, conn, frame{Type: msg.Type, RequestID: msg.RequestID, Reply: reply}); err != nil {
			s.logger.Debug("bridge write failed", zap.Error(err))
			return
		}
	}
}
