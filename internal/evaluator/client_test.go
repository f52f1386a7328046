package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend devuelve respuestas fijas y registra los prompts recibidos
type fakeBackend struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeBackend) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r.Clone(context.Background())
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("cuerpo de request inválido: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestRESTBackendSuccess(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"hello road"}]}}]}`)

	b := NewRESTBackend("k3y", "gemini-test", srv.URL+"/", 5*time.Second)
	text, err := b.Generate(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "hello road", text)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/gemini-test:generateContent", captured.URL.Path)
	assert.Equal(t, "k3y", captured.Header.Get("x-goog-api-key"))
	assert.Empty(t, captured.URL.RawQuery, "la key no debe viajar en la URL")
}

func TestRESTBackendStatusKinds(t *testing.T) {
	tests := []struct {
		status int
		kind   Kind
		text   string
	}{
		{http.StatusNotFound, KindEndpointNotFound, "not found"},
		{http.StatusForbidden, KindForbidden, "forbidden"},
		{http.StatusTooManyRequests, KindRateLimited, "rate limit"},
		{http.StatusInternalServerError, KindRequestFailed, "status 500: Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, `{}`)
			b := NewRESTBackend("k", "m", srv.URL, time.Second)

			_, err := b.Generate(context.Background(), "p")
			require.Error(t, err)

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Contains(t, err.Error(), tt.text)
		})
	}
}

func TestRESTBackendBodyShapes(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{"error":{"message":"quota gone"}}`)
		_, err := NewRESTBackend("k", "m", srv.URL, time.Second).Generate(context.Background(), "p")
		assert.True(t, IsKind(err, KindAPI))
		assert.Equal(t, "API Error: quota gone", err.Error())
	})
	t.Run("empty", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{"candidates":[]}`)
		_, err := NewRESTBackend("k", "m", srv.URL, time.Second).Generate(context.Background(), "p")
		assert.True(t, IsKind(err, KindEmptyResponse))
	})
	t.Run("content without parts", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{"candidates":[{"content":{}}]}`)
		_, err := NewRESTBackend("k", "m", srv.URL, time.Second).Generate(context.Background(), "p")
		assert.True(t, IsKind(err, KindEmptyResponse))
	})
	t.Run("not json", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `<html>`)
		_, err := NewRESTBackend("k", "m", srv.URL, time.Second).Generate(context.Background(), "p")
		assert.True(t, IsKind(err, KindEmptyResponse))
	})
}

func TestRESTBackendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewRESTBackend("k", "m", url, time.Second).Generate(context.Background(), "p")
	assert.True(t, IsKind(err, KindTransport))
}

func TestGenerateNeverFails(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, `{}`)
	c := NewClientWithBackend(NewRESTBackend("k", "m", srv.URL, time.Second), nil, nil)

	text := c.Generate(context.Background(), "p")
	assert.Contains(t, text, "error")
	assert.Equal(t,
		"Sorry, I encountered an error: API endpoint not found. Please check the API configuration. Please try again later.",
		text)
}

func TestGenerateReturnsCandidateTextExactly(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"  exact text\n"}]}},{"content":{"parts":[{"text":"second"}]}}]}`)
	c := NewClientWithBackend(NewRESTBackend("k", "m", srv.URL, time.Second), nil, nil)

	assert.Equal(t, "  exact text\n", c.Generate(context.Background(), "p"))
}

func TestAnalyzeScenarioFencedEqualsUnfenced(t *testing.T) {
	payload := `{"problem":"Sharp curve","causes":["speed","wet road"],"riskScore":72,"interventions":["Add rumble strips","Improve lighting"]}`

	plain := NewClientWithBackend(&fakeBackend{text: payload}, nil, nil).
		AnalyzeScenario(context.Background(), Scenario{})
	fenced := NewClientWithBackend(&fakeBackend{text: "```json\n" + payload + "\n```"}, nil, nil).
		AnalyzeScenario(context.Background(), Scenario{})

	assert.Equal(t, plain, fenced)
	assert.False(t, plain.Fallback)
	assert.Equal(t, 72, plain.RiskScore)
	assert.Equal(t, []string{"speed", "wet road"}, plain.Causes)
}

func TestAnalyzeScenarioInvalidJSONUsesStub(t *testing.T) {
	c := NewClientWithBackend(&fakeBackend{text: "The road looks dangerous."}, nil, nil)

	result := c.AnalyzeScenario(context.Background(), Scenario{})
	assert.Equal(t, 50, result.RiskScore)
	assert.Equal(t, "AI analysis completed", result.Problem)
	assert.True(t, result.Fallback)
	assert.NotEmpty(t, result.FallbackReason)
}

func TestAnalyzeScenarioNullUsesStub(t *testing.T) {
	c := NewClientWithBackend(&fakeBackend{text: "null"}, nil, nil)

	result := c.AnalyzeScenario(context.Background(), Scenario{})
	assert.Equal(t, 50, result.RiskScore)
	assert.True(t, result.Fallback)
}

func TestAnalyzeScenarioAPIFailureUsesStub(t *testing.T) {
	c := NewClientWithBackend(&fakeBackend{err: &Error{Kind: KindRateLimited}}, nil, nil)

	result := c.AnalyzeScenario(context.Background(), Scenario{})
	assert.Equal(t, 50, result.RiskScore)
	assert.True(t, result.Fallback)
	assert.Contains(t, result.FallbackReason, "rate limit")
}

func TestAnalyzeScenarioPromptEmbedsInputs(t *testing.T) {
	fb := &fakeBackend{text: `{}`}
	c := NewClientWithBackend(fb, nil, nil)

	c.AnalyzeScenario(context.Background(), Scenario{
		RoadType:       "highway",
		IssueType:      "collision",
		Environment:    "night",
		SpeedKmh:       90,
		TrafficDensity: 7,
		Description:    "merging trucks",
	})

	require.Len(t, fb.prompts, 1)
	p := fb.prompts[0]
	for _, want := range []string{"Road Type: highway", "Issue Type: collision", "Environment: night",
		"Speed: 90 km/h", "Traffic Density: 7/10", "Description: merging trucks", "riskScore (number)"} {
		assert.Contains(t, p, want)
	}
}

func TestChatWithContext(t *testing.T) {
	fb := &fakeBackend{text: "**raw** answer"}
	c := NewClientWithBackend(fb, nil, nil)

	answer := c.ChatWithContext(context.Background(), "what now?", nil)
	assert.Equal(t, "**raw** answer", answer)
	assert.Contains(t, fb.prompts[0], "No previous analysis context available.")
	assert.Contains(t, fb.prompts[0], `The user now asks: "what now?"`)

	prev := &AnalysisResult{Problem: "Fog on bridge", RiskScore: 80}
	c.ChatWithContext(context.Background(), "and then?", prev)
	assert.Contains(t, fb.prompts[1], `"problem": "Fog on bridge"`)
	assert.Contains(t, fb.prompts[1], `"riskScore": 80`)
}

func TestQueryDataset(t *testing.T) {
	fb := &fakeBackend{err: &Error{Kind: KindForbidden}}
	c := NewClientWithBackend(fb, nil, nil)

	answer := c.QueryDataset(context.Background(), "how many?", "CSV Headers: a, b")
	assert.True(t, strings.HasPrefix(answer, "Sorry, I encountered an error: API access forbidden"))
	assert.Contains(t, fb.prompts[0], "CSV Headers: a, b")
	assert.Contains(t, fb.prompts[0], `The user's question is: "how many?"`)
}

func TestLoadPromptsOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.tmpl"), []byte("Q={{.Question}}"), 0644))

	p, err := LoadPrompts(dir)
	require.NoError(t, err)

	fb := &fakeBackend{text: "ok"}
	c := NewClientWithBackend(fb, p, nil)
	c.ChatWithContext(context.Background(), "hola", nil)
	assert.Equal(t, "Q=hola", fb.prompts[0])

	c.QueryDataset(context.Background(), "q", "preview")
	assert.Contains(t, fb.prompts[1], "Here's a preview of their data", "plantillas sin archivo conservan el default")
}

func TestLoadPromptsInvalidTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenario.tmpl"), []byte("{{.Broken"), 0644))

	_, err := LoadPrompts(dir)
	assert.Error(t, err)
}
