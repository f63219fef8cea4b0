package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/export"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/persistence"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// errNotStopped is returned by the export endpoints while a session is open.
var errNotStopped = errors.New("recording has not been stopped")

type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errInvalidRequest(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusBadRequest, StatusText: "Invalid request.", ErrorText: err.Error()}
}

func errConflict(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusConflict, StatusText: "Nothing to export.", ErrorText: err.Error()}
}

func errNotFound(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusNotFound, StatusText: "Not found.", ErrorText: err.Error()}
}

func errInternal(err error) render.Renderer {
	return &ErrResponse{Err: err, HTTPStatusCode: http.StatusInternalServerError, StatusText: "Internal error.", ErrorText: err.Error()}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	bridge := false
	if s.bridge != nil {
		bridge = s.bridge.Attached()
	}
	render.JSON(w, r, map[string]any{
		"status":      "ok",
		"bridge":      bridge,
		"controllers": s.hub.size(),
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var msg api.Message
	if err := render.DecodeJSON(r.Body, &msg); err != nil {
		render.Render(w, r, errInvalidRequest(err))
		return
	}
	reply, err := s.dispatcher.Handle(r.Context(), msg, "")
	if err != nil {
		render.Render(w, r, errInvalidRequest(err))
		return
	}
	render.JSON(w, r, reply)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, api.NewStateReply(s.rec.State(r.Context())))
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.catalog.ListPlans(r.Context())
	if err != nil {
		render.Render(w, r, errInternal(err))
		return
	}
	if plans == nil {
		plans = []persistence.PlanSummary{}
	}
	render.JSON(w, r, plans)
}

// handleExport serves the stopped session as csv, zip or xlsx and archives
// it in the catalog.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	switch format {
	case "csv", "zip", "xlsx":
	default:
		render.Render(w, r, errNotFound(fmt.Errorf("unknown export format %q", format)))
		return
	}

	st := s.rec.State(r.Context())
	if st.Phase != api.PhaseStopped {
		render.Render(w, r, errConflict(errNotStopped))
		return
	}
	if len(st.Steps) == 0 {
		render.Render(w, r, errConflict(api.ErrNoSteps))
		return
	}

	plan := export.PlanName(st.TestPlanName)
	if _, err := s.catalog.SavePlan(r.Context(), persistence.Plan{
		ID:    st.SessionID,
		Name:  plan,
		Steps: st.Steps,
	}); err != nil {
		s.logger.Warn("failed to archive plan", zap.String("session_id", st.SessionID), zap.Error(err))
	}

	var (
		body        []byte
		name        string
		contentType string
		err         error
	)
	switch format {
	case "csv":
		body, name, contentType = []byte(export.CSV(st.Steps)), export.CSVFileName(plan), "text/csv; charset=utf-8"
	case "zip":
		body, err = export.ZIP(st.Steps)
		name, contentType = export.ZIPFileName(plan), "application/zip"
	case "xlsx":
		body, err = export.XLSX(plan, st.Steps)
		name, contentType = export.XLSXFileName(plan), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		if errors.Is(err, api.ErrNoSteps) {
			render.Render(w, r, errConflict(err))
			return
		}
		render.Render(w, r, errInternal(err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
