// Package app wires configuration, storage and services into the runnable
// server and the CLI operations.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"supplement-coach/internal/config"
	"supplement-coach/internal/database"
	"supplement-coach/internal/llm"
	"supplement-coach/internal/metrics"
	"supplement-coach/internal/scan"
	"supplement-coach/internal/session"
	"supplement-coach/internal/supplement"
	"supplement-coach/internal/telegram"
	"supplement-coach/internal/web"
)

const shutdownTimeout = 10 * time.Second

// ErrScanFailed is returned by ScanFile when the label could not be read.
var ErrScanFailed = errors.New("scan failed")

// App holds the application's dependencies.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	db           *database.DB
	metricsStore *metrics.Store
	scanner      *scan.Service
	sessions     *session.Manager
	tokens       *session.Tokens
	closers      []llm.Closer
}

// Option customizes New.
type Option func(*options)

type options struct {
	vision llm.VisionModel
}

// WithVisionModel replaces the Gemini client, e.g. with a local fake.
func WithVisionModel(m llm.VisionModel) Option {
	return func(o *options) { o.vision = m }
}

// New opens the database and builds all services. Without a Gemini key the
// app runs with scanning disabled.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &App{
		cfg:          cfg,
		logger:       logger,
		db:           db,
		metricsStore: metrics.NewStore(db.SQL),
		sessions: session.NewManager(session.Options{
			TTL:            cfg.SessionTTL,
			Location:       cfg.Location,
			DefaultProfile: cfg.DefaultProfile,
		}),
	}

	a.tokens, err = session.NewTokens(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		db.Close()
		return nil, err
	}
	if cfg.SessionSecret == "" {
		logger.Warn().Msg("SESSION_SECRET not set, sessions will not survive a restart")
	}

	vision := o.vision
	switch {
	case vision != nil:
	case cfg.ScanEnabled():
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			db.Close()
			return nil, err
		}
		vision = gemini
		a.closers = append(a.closers, gemini)
	default:
		logger.Warn().Msg("no Gemini API key configured, label scanning disabled")
	}

	var reader llm.LabelReader
	if vision != nil {
		fallback := llm.NewFallbackReader(vision, cfg.GeminiModels)
		logger.Info().Strs("models", fallback.Candidates()).Msg("label scanning enabled")
		reader = fallback
	}
	a.scanner = scan.NewService(reader, a.metricsStore, logger)

	return a, nil
}

// Close releases the model client and the database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}

// PrintPlan writes the default plan of a profile.
func (a *App) PrintPlan(w io.Writer, p supplement.Profile) error {
	plan := supplement.DefaultPlan(p)
	fmt.Fprintf(w, "Plan: %s (%d Einträge)\n", p, plan.Total())
	for _, c := range plan.NonEmpty() {
		fmt.Fprintf(w, "\n%s\n", c.Name)
		for _, e := range c.Entries {
			fmt.Fprintf(w, "  - %s: %s", e.Name, e.Dosage)
			if e.Note != "" {
				fmt.Fprintf(w, " (%s)", e.Note)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

// ScanFile runs the label scan on an image file and prints the result.
func (a *App) ScanFile(ctx context.Context, w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > a.cfg.MaxUploadBytes {
		return fmt.Errorf("%s exceeds %d bytes", path, a.cfg.MaxUploadBytes)
	}

	res := a.scanner.Analyze(ctx, data)
	fmt.Fprintln(w, res.Text)
	if !res.OK {
		return ErrScanFailed
	}
	a.logger.Debug().Str("model", res.Model).Msg("scan complete")
	return nil
}

// CleanupMetrics removes metric records older than days.
func (a *App) CleanupMetrics(w io.Writer, days int) error {
	if days <= 0 {
		return fmt.Errorf("days must be positive, got %d", days)
	}
	affected, err := a.metricsStore.Cleanup(days)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Successfully removed %d old metric records.\n", affected)
	return nil
}

// Handler builds the HTTP router, including the Telegram webhook when a bot
// token is configured.
func (a *App) Handler() (http.Handler, error) {
	var webhook http.Handler
	if a.cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(telegram.Options{
			Token:          a.cfg.TelegramBotToken,
			WebhookURL:     a.cfg.TelegramWebhookURL,
			AllowedUserIDs: a.cfg.TelegramAllowedUserIDs,
			AdminID:        a.cfg.AdminTelegramID,
			DataDir:        filepath.Dir(a.cfg.DatabasePath),
			MaxUploadBytes: a.cfg.MaxUploadBytes,
			Sessions:       a.sessions,
			Scan:           a.scanner,
			Usage:          a.metricsStore,
			Logger:         a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		webhook = bot
	}

	srv, err := web.NewServer(web.Options{
		Sessions:       a.sessions,
		Tokens:         a.tokens,
		Scan:           a.scanner,
		Usage:          a.metricsStore,
		Logger:         a.logger,
		SessionTTL:     a.cfg.SessionTTL,
		MaxUploadBytes: a.cfg.MaxUploadBytes,
		AllowedOrigins: a.cfg.AllowedOrigins,
		SecureCookies:  a.cfg.SecureCookies,
		Webhook:        webhook,
	})
	if err != nil {
		return nil, err
	}
	return srv.Router(), nil
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Serve(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("port", a.cfg.Port).Bool("scan", a.scanner.Enabled()).Bool("telegram", a.cfg.TelegramEnabled()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info().Msg("server exiting")
	return nil
}
