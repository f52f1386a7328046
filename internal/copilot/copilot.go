// Package copilot mantiene el chat de seguridad vial de una sesión.
package copilot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/evaluator"
	"github.com/PhelGc/roadsphere/internal/logger"
	"github.com/PhelGc/roadsphere/internal/storage"
)

// Sender autor de un mensaje
type Sender string

const (
	User Sender = "user"
	AI   Sender = "ai"
)

// Message entrada del historial
type Message struct {
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Summary resumen del análisis previo mostrado junto al chat
type Summary struct {
	Title         string   `json:"title"`
	RiskScore     int      `json:"riskScore"`
	Interventions []string `json:"interventions"`
}

// Chatter responde una pregunta con el análisis previo como contexto
type Chatter interface {
	ChatWithContext(ctx context.Context, question string, analysis *evaluator.AnalysisResult) string
}

// Copilot chat de una sesión
type Copilot struct {
	ai      Chatter
	gateway *storage.Gateway
	logger  *zap.Logger
	now     func() time.Time

	mu         sync.Mutex
	transcript []Message
}

// New crea el copiloto de una sesión
func New(ai Chatter, gateway *storage.Gateway, log *zap.Logger) *Copilot {
	return &Copilot{ai: ai, gateway: gateway, logger: logger.OrNop(log), now: time.Now}
}

// Context resumen del último análisis guardado
func (c *Copilot) Context(ctx context.Context) (Summary, bool) {
	a, ok := c.gateway.LoadAnalysis(ctx)
	if !ok {
		return Summary{}, false
	}
	title := a.Problem
	if title == "" {
		title = "Previous Analysis"
	}
	interventions := a.Interventions
	if len(interventions) == 0 {
		interventions = []string{"No interventions available"}
	}
	return Summary{Title: title, RiskScore: a.RiskScore, Interventions: interventions}, true
}

// Send agrega la pregunta al historial, consulta al modelo y agrega la
// respuesta. Un mensaje vacío se ignora y devuelve ok=false.
func (c *Copilot) Send(ctx context.Context, text string) (Message, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, false
	}
	c.append(User, text)

	// El contexto se relee en cada mensaje para ver análisis nuevos
	analysis, _ := c.gateway.LoadAnalysis(ctx)
	answer := c.ai.ChatWithContext(ctx, text, analysis)

	c.logger.Debug("Respuesta del copiloto",
		zap.Bool("withContext", analysis != nil),
		zap.Int("chars", len(answer)))
	return c.append(AI, answer), true
}

// Transcript copia del historial en orden
func (c *Copilot) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

// Markdown historial como markdown; el comando chat lo imprime con glamour
func (c *Copilot) Markdown() string {
	var b strings.Builder
	for _, m := range c.Transcript() {
		who := "**You**"
		if m.Sender == AI {
			who = "**Copilot**"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", who, m.Text)
	}
	return b.String()
}

func (c *Copilot) append(sender Sender, text string) Message {
	m := Message{Sender: sender, Text: text, At: c.now()}
	c.mu.Lock()
	c.transcript = append(c.transcript, m)
	c.mu.Unlock()
	return m
}
