package evaluator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// GenAIBackend usa el SDK oficial en lugar de construir el JSON a mano
type GenAIBackend struct {
	client *genai.Client
	model  string
}

// NewGenAIBackend crea el backend basado en google.golang.org/genai
func NewGenAIBackend(ctx context.Context, apiKey, model string, timeout time.Duration) (*GenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY es obligatoria para el backend genai")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("error creando cliente GenAI: %w", err)
	}
	return &GenAIBackend{client: client, model: model}, nil
}

// Generate llama a Models.GenerateContent y traduce los errores del SDK
func (b *GenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyGenAIError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Kind: KindEmptyResponse}
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 200 && apiErr.Code <= 299 {
			return &Error{Kind: KindAPI, Message: apiErr.Message, Err: err}
		}
		return statusError(apiErr.Code, apiErr.Status, err)
	}
	return &Error{Kind: KindTransport, Err: err}
}
