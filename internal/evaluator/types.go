package evaluator

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Scenario son las entradas del formulario de análisis
type Scenario struct {
	RoadType       string `json:"roadType"`
	IssueType      string `json:"issueType"`
	Environment    string `json:"environment"`
	SpeedKmh       int    `json:"speed"`
	TrafficDensity int    `json:"traffic"` // 0–10
	Description    string `json:"description"`
}

// AnalysisResult resultado estructurado del análisis de un escenario vial
type AnalysisResult struct {
	Problem       string   `json:"problem" yaml:"problem"`
	Causes        []string `json:"causes" yaml:"causes"`
	RiskScore     int      `json:"riskScore" yaml:"riskScore"` // 0–100
	Interventions []string `json:"interventions" yaml:"interventions"`

	// Fallback marca un resultado genérico que sustituyó una respuesta
	// ilegible o fallida del modelo.
	Fallback       bool   `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	FallbackReason string `json:"fallbackReason,omitempty" yaml:"fallbackReason,omitempty"`
}

// errNullAnalysis la respuesta fue el literal null
var errNullAnalysis = errors.New("el análisis es null")

// UnmarshalJSON tolera las formas que devuelve el modelo: riskScore como
// texto o decimal, y causes/interventions que no son arreglos (quedan vacíos).
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errNullAnalysis
	}
	var raw struct {
		Problem        json.RawMessage `json:"problem"`
		Causes         json.RawMessage `json:"causes"`
		RiskScore      json.RawMessage `json:"riskScore"`
		Interventions  json.RawMessage `json:"interventions"`
		Fallback       bool            `json:"fallback"`
		FallbackReason string          `json:"fallbackReason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = AnalysisResult{
		Problem:        decodeString(raw.Problem),
		Causes:         decodeStrings(raw.Causes),
		RiskScore:      decodeScore(raw.RiskScore),
		Interventions:  decodeStrings(raw.Interventions),
		Fallback:       raw.Fallback,
		FallbackReason: raw.FallbackReason,
	}
	return nil
}

// Normalize aplica las invariantes que todo consumidor espera
func (r AnalysisResult) Normalize() AnalysisResult {
	r.RiskScore = ClampScore(r.RiskScore)
	if r.Causes == nil {
		r.Causes = []string{}
	}
	if r.Interventions == nil {
		r.Interventions = []string{}
	}
	return r
}

// ClampScore limita el puntaje de riesgo a [0,100]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// FallbackResult es el resultado genérico usado cuando el modelo no
// devuelve JSON válido o la llamada falla.
func FallbackResult(reason string) AnalysisResult {
	return AnalysisResult{
		Problem:        "AI analysis completed",
		Causes:         []string{"Road conditions", "Traffic patterns", "Environmental factors"},
		RiskScore:      50,
		Interventions:  []string{"Review safety protocols", "Monitor conditions", "Implement preventive measures"},
		Fallback:       true,
		FallbackReason: reason,
	}
}

func decodeString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func decodeStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

func decodeScore(raw json.RawMessage) int {
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return roundScore(f)
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return roundScore(parsed)
		}
	}
	return 0
}

// roundScore limita en float antes de convertir para no desbordar int
func roundScore(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 100 {
		return 100
	}
	return int(math.Round(f))
}
