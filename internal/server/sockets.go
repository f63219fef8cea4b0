package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/observer"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

func (s *Server) accept(w http.ResponseWriter, r *http.Request, kind string) (*websocket.Conn, bool) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.String("socket", kind), zap.Error(err))
		return nil, false
	}
	conn.SetReadLimit(maxReadBytes)
	return conn, true
}

// handleController serves a controller: it receives the current state on
// connect, every STEPS_UPDATED broadcast, and replies to its commands.
func (s *Server) handleController(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.accept(w, r, "controller")
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	startPing(ctx, conn)

	c := s.hub.register(conn)
	go func() {
		if err := c.writeLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("controller write failed", zap.Error(err))
		}
		cancel()
	}()

	s.hub.send(c, frame{
		Type:  api.MsgGetRecordingState,
		Reply: api.NewStateReply(s.rec.State(ctx)),
	})

	for {
		var msg api.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			break
		}
		reply, err := s.dispatcher.Handle(ctx, msg, "")
		if err != nil {
			continue
		}
		if !s.hub.send(c, frame{Type: msg.Type, RequestID: msg.RequestID, Reply: reply}) {
			break
		}
	}

	s.hub.remove(c)
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// pageMessage is a page-to-server websocket message.
type pageMessage struct {
	Type     api.MessageType    `json:"type"`
	Event    *observer.DOMEvent `json:"event,omitempty"`
	Viewport *api.Viewport      `json:"viewport,omitempty"`
}

// handlePage binds a PageObserver to the page socket for the lifetime of
// the connection. VIEWPORT messages are acknowledged with the stored
// viewport; DOM_EVENT messages get no reply.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")
	conn, ok := s.accept(w, r, "page")
	if !ok {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	startPing(ctx, conn)

	po := observer.NewPageObserver(tabID, s.bus, observer.RecorderSink{Recorder: s.rec}, s.logger)
	if err := po.Attach(ctx); err != nil {
		s.logger.Warn("failed to attach page observer", zap.String("tab_id", tabID), zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "attach failed")
		return
	}
	defer po.Detach()

	for {
		var msg pageMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}
		switch msg.Type {
		case api.MsgViewport:
			if msg.Viewport != nil {
				po.SetViewport(*msg.Viewport)
			}
			vp := po.Viewport()
			if err := writeFrame(ctx, conn, frame{Type: api.MsgViewport, Viewport: &vp}); err != nil {
				return
			}
		case api.MsgDOMEvent:
			if msg.Event == nil {
				continue
			}
			if _, err := po.HandleDOMEvent(ctx, *msg.Event); err != nil {
				s.logger.Debug("dom event not recorded", zap.String("tab_id", tabID), zap.Error(err))
			}
		default:
			s.logger.Warn("unknown page message", zap.String("tab_id", tabID), zap.String("type", string(msg.Type)))
		}
	}
}
