package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
)

func TestIsModelNotFound(t *testing.T) {
	wrapped404, ok := apierror.FromError(&googleapi.Error{Code: 404, Message: "models/gemini-1.5-flash is not found"})
	if !ok {
		t.Fatal("Expected apierror to wrap a googleapi error")
	}

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"GoogleAPI404", &googleapi.Error{Code: 404}, true},
		{"WrappedGoogleAPI404", fmt.Errorf("call: %w", &googleapi.Error{Code: 404}), true},
		{"APIError404", wrapped404, true},
		{"Message", errors.New("models/gemini-pro is not found for API version v1beta"), true},
		{"GoogleAPI429", &googleapi.Error{Code: 429}, false},
		{"GoogleAPI403", &googleapi.Error{Code: 403, Message: "API key not valid"}, false},
		{"Plain", errors.New("connection reset"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isModelNotFound(tc.err); got != tc.want {
				t.Errorf("isModelNotFound(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("Name: Zink\n"),
				genai.Text("Dosis: 1 Tablette"),
			}},
		}},
	}
	if got := responseText(resp); got != "Name: Zink\nDosis: 1 Tablette" {
		t.Errorf("Unexpected text %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("Expected empty text for nil, got %q", got)
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "")
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential, got %v", err)
	}
}
