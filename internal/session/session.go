// Package session agrupa el estado de cada navegador: almacenamiento,
// formulario, escena, copiloto y dataset.
package session

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/copilot"
	"github.com/PhelGc/roadsphere/internal/evaluator"
	"github.com/PhelGc/roadsphere/internal/knowledge"
	"github.com/PhelGc/roadsphere/internal/logger"
	"github.com/PhelGc/roadsphere/internal/scenario"
	"github.com/PhelGc/roadsphere/internal/scene"
	"github.com/PhelGc/roadsphere/internal/storage"
)

// AI operaciones del modelo que usan las sesiones
type AI interface {
	scenario.Analyzer
	copilot.Chatter
	knowledge.Querier
}

// Session estado de un navegador
type Session struct {
	ID        string
	Gateway   *storage.Gateway
	Scenario  *scenario.Controller
	Scene     *scene.Scene
	Copilot   *copilot.Copilot
	Knowledge *knowledge.Service
}

// ApplyPackage aplica a la escena las intervenciones del último análisis guardado
func (s *Session) ApplyPackage(ctx context.Context) (scene.Config, error) {
	analysis, ok := s.Gateway.LoadAnalysis(ctx)
	if !ok {
		return s.Scene.ApplyPackage(nil, false)
	}
	return s.Scene.ApplyPackage(analysis.Interventions, true)
}

// Options configuración del Manager
type Options struct {
	Backend         storage.Backend
	AI              AI
	Notifier        scenario.Notifier
	NotifyThreshold int
	FrameInterval   time.Duration
	IdleTTL         time.Duration // sin Get durante IdleTTL Sweep descarta la sesión; 0 no descarta
	Now             func() time.Time
	Logger          *zap.Logger
}

// Manager crea y guarda las sesiones activas
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// NewManager crea un Manager vacío
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		opts:     opts,
		logger:   logger.OrNop(opts.Logger),
		sessions: make(map[string]*entry),
	}
}

// Get devuelve la sesión id o crea una nueva si no existe.
// Un id que no es UUID genera un id nuevo; el estado guardado de un id
// válido se conserva en el backend aunque la sesión no esté en memoria.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Now()
	if e, ok := m.sessions[id]; ok {
		e.lastSeen = now
		return e.session, false
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	s := m.newSession(id)
	if !m.closed {
		m.sessions[id] = &entry{session: s, lastSeen: now}
	}
	m.logger.Debug("Sesión creada", zap.String("session", id))
	return s, true
}

// Len cantidad de sesiones en memoria
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep descarta de memoria las sesiones sin Get durante más de IdleTTL.
// Las escenas con suscriptores se conservan. Devuelve cuántas se descartaron.
func (m *Manager) Sweep() int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	cutoff := m.opts.Now().Add(-m.opts.IdleTTL)
	var idle []*Session
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) && e.session.Scene.Subscribers() == 0 {
			delete(m.sessions, id)
			idle = append(idle, e.session)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Scene.Close()
	}
	if len(idle) > 0 {
		m.logger.Debug("Sesiones inactivas descartadas", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run ejecuta Sweep periódicamente hasta que ctx termina
func (m *Manager) Run(ctx context.Context) {
	if m.opts.IdleTTL <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(sweepInterval(m.opts.IdleTTL))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if d := ttl / 4; d > time.Second {
		return d
	}
	return time.Second
}

// Close detiene las animaciones de todas las sesiones
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.closed = true
	m.mu.Unlock()

	for _, e := range sessions {
		e.session.Scene.Close()
	}
	m.logger.Info("Sesiones cerradas", zap.Int("count", len(sessions)))
}

func (m *Manager) newSession(id string) *Session {
	log := m.logger.With(zap.String("session", id))
	gw := storage.NewGateway(m.opts.Backend, id, log)

	return &Session{
		ID:      id,
		Gateway: gw,
		Scenario: scenario.NewController(m.opts.AI, gw, scenario.Options{
			Notifier:        m.opts.Notifier,
			NotifyThreshold: m.opts.NotifyThreshold,
			Logger:          log,
		}),
		Scene: scene.New(scene.Options{
			Interval: m.opts.FrameInterval,
			Rand:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
			Logger:   log,
		}),
		Copilot:   copilot.New(m.opts.AI, gw, log),
		Knowledge: knowledge.NewService(gw, m.opts.AI, log),
	}
}

var _ AI = (*evaluator.Client)(nil)
