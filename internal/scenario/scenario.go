// Package scenario controla el formulario de análisis de escenarios.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/evaluator"
	"github.com/PhelGc/roadsphere/internal/logger"
	"github.com/PhelGc/roadsphere/internal/storage"
)

// ErrBusy ya hay un análisis en curso en esta sesión
var ErrBusy = errors.New("analysis already in progress")

// ErrorMessage texto mostrado cuando el análisis no pudo completarse
const ErrorMessage = "Failed to analyze scenario. Please try again."

// Umbrales de la barra de riesgo
const (
	HighRiskThreshold = 70
	LowRiskThreshold  = 30
)

// State estado del controlador
type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Form valores crudos del formulario; los vacíos toman su valor por defecto
type Form struct {
	RoadType       string `json:"roadType"`
	IssueType      string `json:"issueType"`
	Environment    string `json:"environment"`
	Speed          string `json:"speed"`
	TrafficDensity string `json:"traffic"`
	Description    string `json:"description"`
}

// Valores por defecto de los controles
const (
	DefaultRoadType       = "urban"
	DefaultIssueType      = "speeding"
	DefaultEnvironment    = "day"
	DefaultSpeedKmh       = 50
	DefaultTrafficDensity = 5
)

// Scenario convierte el formulario; un número inválido también toma el default
func (f Form) Scenario() evaluator.Scenario {
	return evaluator.Scenario{
		RoadType:       orDefault(f.RoadType, DefaultRoadType),
		IssueType:      orDefault(f.IssueType, DefaultIssueType),
		Environment:    orDefault(f.Environment, DefaultEnvironment),
		SpeedKmh:       atoiOrDefault(f.Speed, DefaultSpeedKmh),
		TrafficDensity: atoiOrDefault(f.TrafficDensity, DefaultTrafficDensity),
		Description:    strings.TrimSpace(f.Description),
	}
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func atoiOrDefault(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// View proyección del resultado sobre los widgets de la página
type View struct {
	Problem       string   `json:"problem"`
	Causes        []string `json:"causes"`
	RiskScore     int      `json:"riskScore"`
	RiskWidth     string   `json:"riskWidth"`
	RiskClass     string   `json:"riskClass"`
	Interventions []string `json:"interventions"`
	Error         bool     `json:"error"`
	Fallback      bool     `json:"fallback"`
	Notice        string   `json:"notice,omitempty"`
}

// RiskClass "high" si s≥70, "low" si s≤30, vacío en otro caso
func RiskClass(s int) string {
	switch {
	case s >= HighRiskThreshold:
		return "high"
	case s <= LowRiskThreshold:
		return "low"
	}
	return ""
}

// Project proyecta un AnalysisResult
func Project(r evaluator.AnalysisResult) View {
	r = r.Normalize()
	problem := r.Problem
	if problem == "" {
		problem = "Analysis complete"
	}
	v := View{
		Problem:       problem,
		Causes:        r.Causes,
		RiskScore:     r.RiskScore,
		RiskWidth:     fmt.Sprintf("%d%%", r.RiskScore),
		RiskClass:     RiskClass(r.RiskScore),
		Interventions: r.Interventions,
		Fallback:      r.Fallback,
	}
	if r.Fallback {
		v.Notice = "The AI response could not be used; showing a generic assessment."
	}
	return v
}

// ErrorView vista de error: mensaje fijo, barra a 0 y listas vacías
func ErrorView() View {
	return View{
		Problem:       ErrorMessage,
		Causes:        []string{},
		RiskWidth:     "0%",
		Interventions: []string{},
		Error:         true,
	}
}

// Analyzer produce el análisis de un escenario; nunca falla
type Analyzer interface {
	AnalyzeScenario(ctx context.Context, s evaluator.Scenario) evaluator.AnalysisResult
}

// Notifier recibe los análisis de alto riesgo
type Notifier interface {
	NotifyHighRisk(ctx context.Context, s evaluator.Scenario, r evaluator.AnalysisResult) error
}

// Options dependencias opcionales del controlador
type Options struct {
	Notifier Notifier
	// NotifyThreshold riesgo mínimo para notificar; 0 usa HighRiskThreshold
	NotifyThreshold int
	Logger          *zap.Logger
}

// Controller es la máquina de estados del formulario de una sesión
type Controller struct {
	analyzer  Analyzer
	gateway   *storage.Gateway
	notifier  Notifier
	threshold int
	logger    *zap.Logger

	busy atomic.Bool
}

// NewController crea el controlador de una sesión
func NewController(analyzer Analyzer, gateway *storage.Gateway, opts Options) *Controller {
	if opts.NotifyThreshold <= 0 {
		opts.NotifyThreshold = HighRiskThreshold
	}
	return &Controller{
		analyzer:  analyzer,
		gateway:   gateway,
		notifier:  opts.Notifier,
		threshold: opts.NotifyThreshold,
		logger:    logger.OrNop(opts.Logger),
	}
}

// State estado actual
func (c *Controller) State() State {
	if c.busy.Load() {
		return Submitting
	}
	return Idle
}

// Submit analiza el formulario, guarda el resultado y devuelve la vista.
// Un segundo Submit mientras el primero sigue en curso devuelve ErrBusy.
// Al terminar el controlador vuelve siempre a Idle.
func (c *Controller) Submit(ctx context.Context, form Form) (View, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return View{}, ErrBusy
	}
	defer c.busy.Store(false)

	s := form.Scenario()
	c.logger.Info("Analizando escenario",
		zap.String("roadType", s.RoadType),
		zap.String("issueType", s.IssueType),
		zap.String("environment", s.Environment),
		zap.Int("speed", s.SpeedKmh),
		zap.Int("traffic", s.TrafficDensity))

	result := c.analyzer.AnalyzeScenario(ctx, s)
	if err := ctx.Err(); err != nil {
		c.logger.Warn("Análisis cancelado", zap.Error(err))
		return ErrorView(), nil
	}

	if err := c.gateway.SaveAnalysis(ctx, result); err != nil {
		c.logger.Error("Error guardando análisis", zap.Error(err))
		return ErrorView(), nil
	}

	c.notify(ctx, s, result)
	return Project(result), nil
}

// Restore proyecta el último análisis guardado sin llamar al modelo
func (c *Controller) Restore(ctx context.Context) (View, bool) {
	result, ok := c.gateway.LoadAnalysis(ctx)
	if !ok {
		return View{}, false
	}
	return Project(*result), true
}

func (c *Controller) notify(ctx context.Context, s evaluator.Scenario, r evaluator.AnalysisResult) {
	if c.notifier == nil || r.Fallback || r.RiskScore < c.threshold {
		return
	}
	if err := c.notifier.NotifyHighRisk(ctx, s, r); err != nil {
		c.logger.Warn("No se pudo enviar la notificación de riesgo alto",
			zap.Int("riskScore", r.RiskScore),
			zap.Error(err))
	}
}
