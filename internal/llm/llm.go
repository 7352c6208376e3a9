package llm

import (
	"context"
	"errors"
)

var (
	// ErrModelNotFound marks a failure caused by an unknown or retired model
	// identifier. Only this error lets FallbackReader try the next candidate.
	ErrModelNotFound = errors.New("model not found")

	// ErrAllModelsFailed is returned when every candidate model was not found.
	ErrAllModelsFailed = errors.New("all candidate models failed")

	// ErrNoCredential is returned when no API key is configured.
	ErrNoCredential = errors.New("no API key configured")
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   TokenUsage
}

// Image is a captured photo passed to the model as-is.
type Image struct {
	Data     []byte
	MIMEType string
}

// VisionModel sends an image and a prompt to one named model.
type VisionModel interface {
	Generate(ctx context.Context, model string, img Image, prompt string) (ContentResponse, error)
}

// LabelReader extracts descriptive text from a photographed supplement package.
type LabelReader interface {
	ReadLabel(ctx context.Context, img Image) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
