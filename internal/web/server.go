// Package web serves the supplement checklist as an HTML page and a JSON API.
package web

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"supplement-coach/internal/scan"
	"supplement-coach/internal/session"
	"supplement-coach/internal/stats"
)

const cookieName = "supplement_session"

// Options wires a Server. Scan, Usage and Webhook may be nil.
type Options struct {
	Sessions       *session.Manager
	Tokens         *session.Tokens
	Scan           *scan.Service
	Usage          stats.UsageSource
	Logger         zerolog.Logger
	SessionTTL     time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
	SecureCookies  bool
	// Webhook receives Telegram updates on /telegram/webhook.
	Webhook http.Handler
}

// Server holds the HTTP handlers.
type Server struct {
	opts Options
	page *pageRenderer
}

// NewServer creates a Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil || opts.Tokens == nil {
		return nil, errors.New("web: session manager and tokens are required")
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	page, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{opts: opts, page: page}, nil
}

// Router returns the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, middleware.RealIP, AccessLog(s.opts.Logger), middleware.Recoverer)

	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   s.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
			AllowCredentials: !slices.Contains(s.opts.AllowedOrigins, "*"),
		}).Handler)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/", s.handleIndex)
	r.Post("/profile", s.handleProfileForm)
	r.Post("/toggle", s.handleToggleForm)
	r.Post("/delete", s.handleDeleteForm)
	r.Post("/scan", s.handleScanForm)

	r.Route("/api", func(r chi.Router) {
		r.Get("/plan", s.handleGetPlan)
		r.Put("/profile", s.handlePutProfile)
		r.Post("/checks/{category}/{name}", s.handleToggle)
		r.Delete("/plan/{category}/{name}", s.handleDeleteEntry)
		r.Post("/scan", s.handleScan)
		r.Get("/stats", s.handleStats)
	})

	if s.opts.Webhook != nil {
		r.Method(http.MethodPost, "/telegram/webhook", s.opts.Webhook)
	}

	return r
}

// existingSession resolves the session cookie, if any.
func (s *Server) existingSession(r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return nil, false
	}
	id, err := s.opts.Tokens.Parse(c.Value)
	if err != nil {
		return nil, false
	}
	return s.opts.Sessions.Get(id)
}

// viewSession is sessionFor for read-only requests. Callers without a
// session see the default plan and nothing is stored for them.
func (s *Server) viewSession(r *http.Request) *session.Session {
	if sess, ok := s.existingSession(r); ok {
		return sess
	}
	return s.opts.Sessions.Preview()
}

// sessionFor returns the caller's session, starting a new one (and setting
// the cookie) when the cookie is missing, invalid or expired.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	if sess, ok := s.existingSession(r); ok {
		return sess
	}

	sess := s.opts.Sessions.Create("")
	token, err := s.opts.Tokens.Issue(sess.ID)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to issue session token")
		return sess
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies || isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// isHTTPS reports whether the client reached us over TLS, directly or
// through a proxy that sets X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
