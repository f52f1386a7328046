package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhelGc/roadsphere/internal/evaluator"
	"github.com/PhelGc/roadsphere/internal/scenario"
	"github.com/PhelGc/roadsphere/internal/scene"
	"github.com/PhelGc/roadsphere/internal/session"
	"github.com/PhelGc/roadsphere/internal/storage"
)

type fakeBackend struct{ text string }

func (f fakeBackend) Generate(context.Context, string) (string, error) { return f.text, nil }

func newServer(t *testing.T, text string) *Server {
	t.Helper()
	ai := evaluator.NewClientWithBackend(fakeBackend{text: text}, nil, nil)
	mgr := session.NewManager(session.Options{Backend: storage.NewMemory(), AI: ai})
	t.Cleanup(mgr.Close)
	return New(mgr, "test", nil)
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestAnalyzeThenApplyPackage(t *testing.T) {
	s := newServer(t, `{"problem":"Unlit crossing","riskScore":65,"interventions":["Paint zebra crossing"]}`)

	out, isErr := call(t, s.handleApplyPackage, nil)
	assert.True(t, isErr)
	assert.Contains(t, out, "no previous analysis")

	out, isErr = call(t, s.handleAnalyze, map[string]any{"road_type": "urban", "speed": float64(40)})
	require.False(t, isErr)
	var view scenario.View
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "Unlit crossing", view.Problem)
	assert.Equal(t, "65%", view.RiskWidth)

	out, isErr = call(t, s.handleApplyPackage, nil)
	require.False(t, isErr)
	var cfg scene.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.True(t, cfg.ZebraCrossing)
	assert.False(t, cfg.Lighting)
}

func TestRender(t *testing.T) {
	s := newServer(t, "{}")

	out, isErr := call(t, s.handleRender, map[string]any{"scene_type": "school-zone", "signage": true, "weather": "fog"})
	require.False(t, isErr)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Contains(t, out, ">SCHOOL<")
	assert.Contains(t, out, `data-layer="weather"`)

	_, isErr = call(t, s.handleRender, map[string]any{"scene_type": "roundabout"})
	assert.True(t, isErr)
}

func TestAskAndQueryData(t *testing.T) {
	s := newServer(t, "Keep a safe distance.")

	_, isErr := call(t, s.handleAsk, map[string]any{"question": ""})
	assert.True(t, isErr)

	out, isErr := call(t, s.handleAsk, map[string]any{"question": "tips?"})
	require.False(t, isErr)
	assert.Equal(t, "Keep a safe distance.", out)

	out, isErr = call(t, s.handleQueryData, map[string]any{"csv": "a,b", "question": "q"})
	assert.True(t, isErr)
	assert.Equal(t, "CSV file must contain at least a header row and one data row.", out)

	out, isErr = call(t, s.handleQueryData, map[string]any{"csv": "a,b\n1,2", "question": "q"})
	require.False(t, isErr)
	assert.Equal(t, "Keep a safe distance.", out)
}

func TestNumberArg(t *testing.T) {
	args := map[string]any{"f": float64(72.9), "s": "30", "b": true}
	assert.Equal(t, "72", numberArg(args, "f"))
	assert.Equal(t, "30", numberArg(args, "s"))
	assert.Equal(t, "", numberArg(args, "b"))
	assert.Equal(t, "", numberArg(args, "missing"))
}
