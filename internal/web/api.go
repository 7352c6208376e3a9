package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"supplement-coach/internal/session"
	"supplement-coach/internal/stats"
	"supplement-coach/internal/supplement"
)

type errorResponse struct {
	Error string `json:"error"`
}

type profileRequest struct {
	Profile string `json:"profile"`
}

type toggleResponse struct {
	Checked  bool    `json:"checked"`
	Progress float64 `json:"progress"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// pathParam returns a decoded chi URL parameter. Category names contain
// spaces and parentheses.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	sess := s.viewSession(r)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := supplement.ParseProfile(req.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.SwitchProfile(p)
	zerolog.Ctx(r.Context()).Info().Str("session", sess.ID).Str("profile", string(p)).Msg("profile switched")
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	checked, err := sess.Toggle(pathParam(r, "category"), pathParam(r, "name"))
	if errors.Is(err, supplement.ErrEntryNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Checked: checked, Progress: sess.Progress()})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	sess.DeleteEntry(pathParam(r, "category"), pathParam(r, "name"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if !s.opts.Scan.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "label scanning is not configured")
		return
	}
	data, status, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Scan.Analyze(r.Context(), data))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sess := s.viewSession(r)
	writeJSON(w, http.StatusOK, s.report(r, sess.Snapshot()))
}

func (s *Server) report(r *http.Request, view session.View) stats.Report {
	rep, err := stats.Build(view, s.opts.Usage)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("stats without usage")
	}
	return rep
}

var (
	errUploadTooLarge = errors.New("upload too large")
	errNoImage        = errors.New("missing image upload")
)

// readUpload reads the multipart field "image" within the configured size limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, errUploadTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, http.StatusRequestEntityTooLarge, errUploadTooLarge
		}
		return nil, http.StatusBadRequest, errNoImage
	}

	f, _, err := r.FormFile("image")
	if err != nil {
		return nil, http.StatusBadRequest, errNoImage
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return data, http.StatusOK, nil
}
