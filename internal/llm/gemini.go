package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// GeminiClient is a VisionModel backed by the Google Gemini API.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a new Gemini API client. An empty key is rejected
// with ErrNoCredential so callers can disable scanning instead of failing.
func NewGeminiClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrNoCredential
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Generate sends the image followed by the prompt to the named model.
func (c *GeminiClient) Generate(ctx context.Context, model string, img Image, prompt string) (ContentResponse, error) {
	mime := img.MIMEType
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}

	resp, err := c.client.GenerativeModel(model).GenerateContent(ctx,
		genai.Blob{MIMEType: mime, Data: img.Data},
		genai.Text(prompt),
	)
	if err != nil {
		if isModelNotFound(err) {
			return ContentResponse{}, fmt.Errorf("%s: %w: %v", model, ErrModelNotFound, err)
		}
		return ContentResponse{}, fmt.Errorf("%s: failed to generate content: %w", model, err)
	}

	text := responseText(resp)
	if text == "" {
		return ContentResponse{}, fmt.Errorf("%s: no content generated", model)
	}

	out := ContentResponse{Content: text, Usage: TokenUsage{Model: model}}
	if resp.UsageMetadata != nil {
		out.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

// isModelNotFound recognises the API's answer for an unknown model name,
// whether it surfaces as an HTTP 404, a gRPC NotFound or only as the message.
func isModelNotFound(err error) bool {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPCode() == http.StatusNotFound {
			return true
		}
		if st := apiErr.GRPCStatus(); st != nil && st.Code() == codes.NotFound {
			return true
		}
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusNotFound {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "is not found for api version")
}
