package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/config"
	"github.com/PhelGc/roadsphere/internal/logger"
)

// Backend envía un prompt al modelo y devuelve el texto del primer candidato.
// Los fallos se devuelven como *Error.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client construye los prompts de RoadSphere sobre un Backend
type Client struct {
	backend Backend
	prompts *PromptLoader
	logger  *zap.Logger
}

// NewClient crea el cliente IA usando el backend indicado en la configuración
func NewClient(ctx context.Context, cfg config.GeminiConfig, prompts *PromptLoader, log *zap.Logger) (*Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var backend Backend
	switch cfg.Backend {
	case "", "rest":
		backend = NewRESTBackend(cfg.APIKey, cfg.Model, cfg.BaseURL, timeout)
	case "genai":
		gb, err := NewGenAIBackend(ctx, cfg.APIKey, cfg.Model, timeout)
		if err != nil {
			return nil, err
		}
		backend = gb
	default:
		return nil, fmt.Errorf("backend de Gemini desconocido: %q", cfg.Backend)
	}
	return NewClientWithBackend(backend, prompts, log), nil
}

// NewClientWithBackend crea un Client con un backend inyectado.
// Se usa en tests sin conexión real.
func NewClientWithBackend(backend Backend, prompts *PromptLoader, log *zap.Logger) *Client {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Client{
		backend: backend,
		prompts: prompts,
		logger:  logger.OrNop(log),
	}
}

// Call envía el prompt y devuelve el resultado etiquetado
func (c *Client) Call(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.backend.Generate(ctx, prompt)
	if err != nil {
		kind := "unknown"
		var e *Error
		if errors.As(err, &e) {
			kind = e.Kind.String()
		}
		c.logger.Warn("Error llamando Gemini API",
			zap.String("kind", kind),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	c.logger.Debug("Respuesta de Gemini recibida",
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// Generate nunca falla: cualquier error se convierte en una disculpa textual
func (c *Client) Generate(ctx context.Context, prompt string) string {
	text, err := c.Call(ctx, prompt)
	if err != nil {
		return Apology(err)
	}
	return text
}

// AnalyzeScenario pide al modelo un análisis JSON de cuatro campos.
// Si la llamada falla o el texto no es JSON válido devuelve FallbackResult,
// marcado con Fallback=true para que la interfaz lo muestre como tal.
func (c *Client) AnalyzeScenario(ctx context.Context, s Scenario) AnalysisResult {
	prompt, err := render(c.prompts.Scenario, s)
	if err != nil {
		c.logger.Error("Error construyendo prompt de escenario", zap.Error(err))
		return FallbackResult(err.Error())
	}

	text, err := c.Call(ctx, prompt)
	if err != nil {
		return FallbackResult(err.Error())
	}

	result, err := ParseAnalysis(text)
	if err != nil {
		c.logger.Warn("Respuesta del modelo no es JSON válido, usando resultado genérico", zap.Error(err))
		return FallbackResult(err.Error())
	}
	return result
}

// ParseAnalysis limpia los bloques markdown y decodifica el JSON del modelo
func ParseAnalysis(text string) (AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal([]byte(cleanJSON(text)), &result); err != nil {
		return AnalysisResult{}, fmt.Errorf("JSON inválido en la respuesta del modelo: %w", err)
	}
	result.Fallback = false
	result.FallbackReason = ""
	return result.Normalize(), nil
}

// ChatWithContext responde una pregunta usando el último análisis como contexto
func (c *Client) ChatWithContext(ctx context.Context, question string, analysis *AnalysisResult) string {
	contextText := "No previous analysis context available."
	if analysis != nil {
		data, err := json.MarshalIndent(analysis, "", "  ")
		if err == nil {
			contextText = string(data)
		}
	}

	prompt, err := render(c.prompts.Chat, chatPromptData{Context: contextText, Question: question})
	if err != nil {
		return Apology(err)
	}
	return c.Generate(ctx, prompt)
}

// QueryDataset responde una pregunta sobre la vista previa de un CSV
func (c *Client) QueryDataset(ctx context.Context, question, preview string) string {
	prompt, err := render(c.prompts.Dataset, datasetPromptData{Preview: preview, Question: question})
	if err != nil {
		return Apology(err)
	}
	return c.Generate(ctx, prompt)
}

// --- Backend REST ---

// RESTBackend llama a generateContent directamente por HTTP
type RESTBackend struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewRESTBackend crea el backend REST. baseURL apunta a .../v1beta/models
func NewRESTBackend(apiKey, model, baseURL string, timeout time.Duration) *RESTBackend {
	return &RESTBackend{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// --- Structs para la API de Gemini ---

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate envía un único POST y extrae candidates[0].content.parts[0].text
func (b *RESTBackend) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Kind: KindTransport, Err: err}
	}

	url := fmt.Sprintf("%s/%s:generateContent", b.baseURL, b.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	// La key va en cabecera, nunca en la URL
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindTransport, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, resp.Status, fmt.Errorf("cuerpo: %s", truncate(string(respBody), 300)))
	}

	return extractText(respBody)
}

func extractText(body []byte) (string, error) {
	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", &Error{Kind: KindEmptyResponse, Err: err}
	}

	if len(gr.Candidates) > 0 && gr.Candidates[0].Content != nil && len(gr.Candidates[0].Content.Parts) > 0 {
		return gr.Candidates[0].Content.Parts[0].Text, nil
	}
	if gr.Error != nil {
		return "", &Error{Kind: KindAPI, Message: gr.Error.Message}
	}
	return "", &Error{Kind: KindEmptyResponse}
}

// cleanJSON elimina los marcadores de bloque markdown que el modelo pueda
// agregar alrededor del JSON (```json ... ```)
func cleanJSON(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
