// Package scan turns a photographed supplement label into a short text
// description for the Scan tab.
package scan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"supplement-coach/internal/llm"
	"supplement-coach/internal/metrics"

	"github.com/rs/zerolog"
)

// AgentName identifies label scans in the execution metrics.
const AgentName = "label-reader"

const (
	msgNoCredential = "Fehler: Kein API Key gefunden."
	msgNotAnImage   = "Fehler: Datei ist kein Bild."
)

// Recorder persists one execution metric.
type Recorder interface {
	Record(metrics.ExecutionMetric) error
}

// Result is shown to the user as-is.
type Result struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
	OK    bool   `json:"ok"`
}

// Service runs label scans. A nil reader means no credential is configured.
type Service struct {
	reader   llm.LabelReader
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a scan service. reader and recorder may be nil.
func NewService(reader llm.LabelReader, recorder Recorder, logger zerolog.Logger) *Service {
	return &Service{
		reader:   reader,
		recorder: recorder,
		logger:   logger.With().Str("component", "scan").Logger(),
		now:      time.Now,
	}
}

// Enabled reports whether scans can reach a model.
func (s *Service) Enabled() bool {
	return s != nil && s.reader != nil
}

// Analyze sends the photo to the label reader and maps every failure to a
// user-facing message. It never returns an error.
func (s *Service) Analyze(ctx context.Context, data []byte) Result {
	if !s.Enabled() {
		return Result{Text: msgNoCredential}
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return Result{Text: msgNotAnImage}
	}

	start := s.now()
	resp, err := s.reader.ReadLabel(ctx, llm.Image{Data: data, MIMEType: mime})
	latency := s.now().Sub(start)
	s.record(resp.Usage, latency, err == nil)

	if err != nil {
		s.logger.Warn().Err(err).Dur("latency", latency).Msg("label scan failed")
		return Result{Text: errorText(err)}
	}

	s.logger.Info().Str("model", resp.Usage.Model).Dur("latency", latency).Msg("label scanned")
	return Result{Text: resp.Content, Model: resp.Usage.Model, OK: true}
}

func (s *Service) record(usage llm.TokenUsage, latency time.Duration, success bool) {
	if s.recorder == nil {
		return
	}
	m := metrics.MapUsage(AgentName, usage, latency, success)
	m.Timestamp = s.now().UTC()
	if err := s.recorder.Record(m); err != nil {
		s.logger.Error().Err(err).Msg("failed to record scan metric")
	}
}

func errorText(err error) string {
	if errors.Is(err, llm.ErrAllModelsFailed) {
		return fmt.Sprintf("Fehler: Kein Modell verfügbar (%v)", err)
	}
	return fmt.Sprintf("Fehler: %v", err)
}
