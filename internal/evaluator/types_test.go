package evaluator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisTolerantShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AnalysisResult
	}{
		{
			name:  "string score and scalar causes",
			input: `{"problem":"p","causes":"not a list","riskScore":"85","interventions":["a",3,"b"]}`,
			want:  AnalysisResult{Problem: "p", Causes: []string{}, RiskScore: 85, Interventions: []string{"a", "b"}},
		},
		{
			name:  "missing fields",
			input: `{}`,
			want:  AnalysisResult{Causes: []string{}, RiskScore: 0, Interventions: []string{}},
		},
		{
			name:  "out of range score is clamped",
			input: `{"riskScore":250.4}`,
			want:  AnalysisResult{Causes: []string{}, RiskScore: 100, Interventions: []string{}},
		},
		{
			name:  "huge score is clamped to the top",
			input: `{"riskScore":1e20}`,
			want:  AnalysisResult{Causes: []string{}, RiskScore: 100, Interventions: []string{}},
		},
		{
			name:  "huge string score is clamped to the top",
			input: `{"riskScore":"1e30"}`,
			want:  AnalysisResult{Causes: []string{}, RiskScore: 100, Interventions: []string{}},
		},
		{
			name:  "huge negative score is clamped to zero",
			input: `{"riskScore":-1e30}`,
			want:  AnalysisResult{Causes: []string{}, RiskScore: 0, Interventions: []string{}},
		},
		{
			name:  "negative score is clamped",
			input: `{"riskScore":-3}`,
			want:  AnalysisResult{Causes: []string{}, RiskScore: 0, Interventions: []string{}},
		},
		{
			name:  "decimal score rounds",
			input: "```json\n{\"riskScore\":69.5}\n```",
			want:  AnalysisResult{Causes: []string{}, RiskScore: 70, Interventions: []string{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysis(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAnalysisRejectsNonObject(t *testing.T) {
	_, err := ParseAnalysis(`["a","b"]`)
	assert.Error(t, err)

	_, err = ParseAnalysis(`{"problem":`)
	assert.Error(t, err)

	_, err = ParseAnalysis("null")
	assert.Error(t, err)

	_, err = ParseAnalysis("```json\n null \n```")
	assert.Error(t, err)
}

func TestParseAnalysisIgnoresModelFallbackFlag(t *testing.T) {
	got, err := ParseAnalysis(`{"problem":"x","fallback":true,"fallbackReason":"y"}`)
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.Empty(t, got.FallbackReason)
}

func TestAnalysisResultStoredRoundTripKeepsFallback(t *testing.T) {
	in := FallbackResult("bad json")
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out AnalysisResult
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-1))
	assert.Equal(t, 0, ClampScore(0))
	assert.Equal(t, 70, ClampScore(70))
	assert.Equal(t, 100, ClampScore(101))
}
