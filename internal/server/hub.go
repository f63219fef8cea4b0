package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/bus"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

const (
	writeTimeout   = 15 * time.Second
	pingInterval   = 20 * time.Second
	pingTimeout    = 5 * time.Second
	maxReadBytes   = 32 << 20
	clientSendSize = 64
)

// frame is a server-to-client websocket message. Command replies echo the
// command's type and requestId.
type frame struct {
	Type      api.MessageType `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Reply     any             `json:"reply,omitempty"`
	Steps     []api.Step      `json:"steps,omitempty"`
	Viewport  *api.Viewport   `json:"viewport,omitempty"`
}

type wsConn interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
	Close(status websocket.StatusCode, reason string) error
}

// hub fans STEPS_UPDATED out to connected controllers, dropping slow ones.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

type client struct {
	conn wsConn
	send chan frame
}

func (h *hub) register(conn wsConn) *client {
	c := &client{conn: conn, send: make(chan frame, clientSendSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// send queues f for c. It reports false if c is gone or too slow.
func (h *hub) send(c *client, f frame) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	if !c.enqueue(f) {
		go h.remove(c)
		return false
	}
	return true
}

func (h *hub) broadcast(f frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.enqueue(f) {
			go h.remove(c)
		}
	}
}

func (h *hub) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) handleSteps(m *bus.Message) []byte {
	var msg api.Message
	if err := json.Unmarshal(m.Data, &msg); err != nil || msg.Type != api.MsgStepsUpdated {
		return nil
	}
	steps := msg.Steps
	if steps == nil {
		steps = []api.Step{}
	}
	h.broadcast(frame{Type: api.MsgStepsUpdated, Steps: steps})
	return nil
}

func (c *client) enqueue(f frame) bool {
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *client) writeLoop(ctx context.Context) error {
	for {
		select {
		case f, ok := <-c.send:
			if !ok {
				return nil
			}
			if err := writeFrame(ctx, c.conn, f); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func writeFrame(ctx context.Context, conn wsConn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

func startPing(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
				_ = conn.Ping(pingCtx)
				cancel()
			}
		}
	}()
}
