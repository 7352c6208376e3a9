package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// LabelPrompt is sent together with the photographed label.
const LabelPrompt = "Analysiere dieses Supplement. Antworte kurz: Name, Dosis, Zeit, Info."

// FallbackReader tries a fixed list of model identifiers in preference order.
// A "model not found" failure moves on to the next identifier; any other
// failure ends the call. Nothing is retried beyond the list.
type FallbackReader struct {
	model      VisionModel
	candidates []string
	prompt     string
}

// NewFallbackReader creates a LabelReader over the candidate models.
func NewFallbackReader(model VisionModel, candidates []string) *FallbackReader {
	return &FallbackReader{
		model:      model,
		candidates: append([]string(nil), candidates...),
		prompt:     LabelPrompt,
	}
}

// Candidates returns the model identifiers in the order they are tried.
func (r *FallbackReader) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

// ReadLabel returns the first successful response. Usage.Model names the
// model that answered, or on error the last model attempted.
func (r *FallbackReader) ReadLabel(ctx context.Context, img Image) (ContentResponse, error) {
	var (
		lastErr   error
		attempted ContentResponse
	)
	for _, name := range r.candidates {
		resp, err := r.model.Generate(ctx, name, img, r.prompt)
		if err == nil {
			resp.Usage.Model = name
			return resp, nil
		}
		attempted = ContentResponse{Usage: TokenUsage{Model: name}}
		if !errors.Is(err, ErrModelNotFound) {
			return attempted, err
		}
		lastErr = err
	}

	tried := strings.Join(r.candidates, ", ")
	if lastErr == nil {
		return attempted, fmt.Errorf("%w: no candidate models configured", ErrAllModelsFailed)
	}
	return attempted, fmt.Errorf("%w (%s): %w", ErrAllModelsFailed, tried, lastErr)
}
