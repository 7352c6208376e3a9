package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"supplement-coach/internal/llm"
	"supplement-coach/internal/metrics"

	"github.com/rs/zerolog"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type mockReader struct {
	resp  llm.ContentResponse
	err   error
	calls int
	img   llm.Image
}

func (m *mockReader) ReadLabel(_ context.Context, img llm.Image) (llm.ContentResponse, error) {
	m.calls++
	m.img = img
	return m.resp, m.err
}

type mockRecorder struct {
	records []metrics.ExecutionMetric
}

func (m *mockRecorder) Record(em metrics.ExecutionMetric) error {
	m.records = append(m.records, em)
	return nil
}

func TestAnalyze(t *testing.T) {
	t.Run("NoCredential", func(t *testing.T) {
		s := NewService(nil, nil, zerolog.Nop())
		if s.Enabled() {
			t.Error("Expected service to be disabled")
		}
		res := s.Analyze(context.Background(), pngHeader)
		if res.OK || res.Text != "Fehler: Kein API Key gefunden." {
			t.Errorf("Unexpected result %+v", res)
		}
	})

	t.Run("NotAnImage", func(t *testing.T) {
		reader := &mockReader{}
		s := NewService(reader, nil, zerolog.Nop())
		res := s.Analyze(context.Background(), []byte("just some text"))
		if res.OK || res.Text != "Fehler: Datei ist kein Bild." {
			t.Errorf("Unexpected result %+v", res)
		}
		if reader.calls != 0 {
			t.Errorf("Expected no model call, got %d", reader.calls)
		}
	})

	t.Run("Success", func(t *testing.T) {
		reader := &mockReader{resp: llm.ContentResponse{
			Content: "Vitamin D3, 1000 IE, morgens",
			Usage:   llm.TokenUsage{Model: "gemini-1.5-flash", PromptTokens: 300, CompletionTokens: 12},
		}}
		rec := &mockRecorder{}
		s := NewService(reader, rec, zerolog.Nop())

		res := s.Analyze(context.Background(), pngHeader)
		if !res.OK || res.Text != "Vitamin D3, 1000 IE, morgens" || res.Model != "gemini-1.5-flash" {
			t.Errorf("Unexpected result %+v", res)
		}
		if reader.img.MIMEType != "image/png" {
			t.Errorf("Expected image/png, got %s", reader.img.MIMEType)
		}
		if len(rec.records) != 1 || !rec.records[0].Success || rec.records[0].AgentName != AgentName || rec.records[0].PromptTokens != 300 {
			t.Errorf("Unexpected metrics %+v", rec.records)
		}
	})

	t.Run("AllModelsFailed", func(t *testing.T) {
		reader := &mockReader{
			resp: llm.ContentResponse{Usage: llm.TokenUsage{Model: "b"}},
			err:  fmt.Errorf("%w (a, b): gone", llm.ErrAllModelsFailed),
		}
		rec := &mockRecorder{}
		s := NewService(reader, rec, zerolog.Nop())

		res := s.Analyze(context.Background(), pngHeader)
		if res.OK || !strings.HasPrefix(res.Text, "Fehler: Kein Modell verfügbar (") {
			t.Errorf("Unexpected result %+v", res)
		}
		if len(rec.records) != 1 || rec.records[0].Success {
			t.Fatalf("Expected one failed metric, got %+v", rec.records)
		}
		if rec.records[0].Model != "b" {
			t.Errorf("Expected the failed metric to name the last model, got %q", rec.records[0].Model)
		}
	})

	t.Run("OtherError", func(t *testing.T) {
		reader := &mockReader{err: errors.New("quota exceeded")}
		s := NewService(reader, nil, zerolog.Nop())

		res := s.Analyze(context.Background(), pngHeader)
		if res.OK || res.Text != "Fehler: quota exceeded" {
			t.Errorf("Unexpected result %+v", res)
		}
	})
}
