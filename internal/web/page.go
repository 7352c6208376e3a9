package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"supplement-coach/internal/scan"
	"supplement-coach/internal/session"
	"supplement-coach/internal/stats"
	"supplement-coach/internal/supplement"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Tabs of the page, also used as URL fragments.
const (
	tabPlan     = "plan"
	tabScan     = "scan"
	tabStats    = "stats"
	tabSettings = "settings"
)

type pageData struct {
	View        session.View
	Profiles    []supplement.Profile
	Report      stats.Report
	ScanEnabled bool
	Scan        *scan.Result
	Tab         string
}

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"percent": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
		"date":    func(v session.View) string { return v.Date.Format("02.01.2006") },
	}).ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &pageRenderer{tmpl: tmpl}, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, tab string, res *scan.Result) {
	view := s.viewSession(r).Snapshot()
	data := pageData{
		View:        view,
		Profiles:    supplement.Profiles(),
		Report:      s.report(r, view),
		ScanEnabled: s.opts.Scan.Enabled(),
		Scan:        res,
		Tab:         tab,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.tmpl.Execute(w, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render page")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, tabPlan, nil)
}

func (s *Server) handleProfileForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	p, err := supplement.ParseProfile(r.FormValue("profile"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess.SwitchProfile(p)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleToggleForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if _, err := sess.Toggle(r.FormValue("category"), r.FormValue("name")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	sess.DeleteEntry(r.FormValue("category"), r.FormValue("name"))
	http.Redirect(w, r, "/#"+tabSettings, http.StatusSeeOther)
}

func (s *Server) handleScanForm(w http.ResponseWriter, r *http.Request) {
	data, status, err := s.readUpload(w, r)
	if err != nil {
		msg := "Fehler: Kein Bild hochgeladen."
		if status == http.StatusRequestEntityTooLarge {
			msg = "Fehler: Datei ist zu groß."
		}
		s.render(w, r, status, tabScan, &scan.Result{Text: msg})
		return
	}
	res := s.opts.Scan.Analyze(r.Context(), data)
	s.render(w, r, http.StatusOK, tabScan, &res)
}
