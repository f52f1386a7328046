package scene

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/logger"
)

// Options parámetros de una Scene
type Options struct {
	Interval time.Duration // periodo del tick; por defecto ~30 fps
	Rand     *rand.Rand    // fuente para los actores nuevos
	Logger   *zap.Logger
}

// Scene es el estado de la simulación de una sesión: controles, actores,
// clima y animación. Es segura para uso concurrente.
type Scene struct {
	mu      sync.Mutex
	config  Config
	actors  Actors
	weather Weather
	frame   uint64
	rng     *rand.Rand

	subs    map[int]chan string
	nextSub int

	animator *Animator
	logger   *zap.Logger
}

// New crea una escena recta, sin actores ni clima
func New(opts Options) *Scene {
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 30
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	s := &Scene{
		config:  DefaultConfig(),
		weather: WeatherNone,
		rng:     opts.Rand,
		subs:    make(map[int]chan string),
		logger:  logger.OrNop(opts.Logger),
	}
	s.animator = NewAnimator(opts.Interval, s.Tick)
	return s
}

// Config devuelve los controles actuales
func (s *Scene) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// SetConfig reemplaza los controles y redibuja
func (s *Scene) SetConfig(cfg Config) Drawing {
	s.mu.Lock()
	if _, ok := layouts[cfg.Type]; !ok {
		cfg.Type = Straight
	}
	s.config = cfg
	d := s.drawLocked()
	s.mu.Unlock()

	s.publish(d)
	return d
}

// SetWeather cambia el efecto climático y redibuja
func (s *Scene) SetWeather(w Weather) Drawing {
	s.mu.Lock()
	s.weather = w
	d := s.drawLocked()
	s.mu.Unlock()

	s.publish(d)
	return d
}

// Weather efecto climático actual
func (s *Scene) Weather() Weather {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weather
}

// AddVehicle agrega un vehículo y redibuja
func (s *Scene) AddVehicle() Vehicle {
	s.mu.Lock()
	v := NewVehicle(s.rng)
	s.actors.Vehicles = append(s.actors.Vehicles, v)
	d := s.drawLocked()
	s.mu.Unlock()

	s.publish(d)
	return v
}

// AddPedestrian agrega un peatón y redibuja
func (s *Scene) AddPedestrian() Pedestrian {
	s.mu.Lock()
	p := NewPedestrian(s.rng)
	s.actors.Pedestrians = append(s.actors.Pedestrians, p)
	d := s.drawLocked()
	s.mu.Unlock()

	s.publish(d)
	return p
}

// Actors copia de los actores actuales
func (s *Scene) Actors() Actors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actors.Clone()
}

// Draw dibuja el estado actual sin avanzar
func (s *Scene) Draw() Drawing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawLocked()
}

// Tick avanza los actores un paso, redibuja y publica el frame
func (s *Scene) Tick() {
	s.mu.Lock()
	s.actors.Step()
	s.frame++
	d := s.drawLocked()
	s.mu.Unlock()

	s.publish(d)
}

// ApplyPackage activa los toggles sugeridos por las intervenciones de un
// análisis. ok=false indica que no hay análisis previo.
func (s *Scene) ApplyPackage(interventions []string, ok bool) (Config, error) {
	if !ok {
		return s.Config(), ErrNoAnalysis
	}

	s.mu.Lock()
	s.config = ApplyInterventions(s.config, interventions)
	cfg := s.config
	d := s.drawLocked()
	s.mu.Unlock()

	s.logger.Info("Paquete IA aplicado a la escena",
		zap.Bool("rumbleStrips", cfg.RumbleStrips),
		zap.Bool("guardrail", cfg.Guardrail),
		zap.Bool("signage", cfg.Signage),
		zap.Bool("zebraCrossing", cfg.ZebraCrossing),
		zap.Bool("lighting", cfg.Lighting))

	s.publish(d)
	return cfg, nil
}

// StartAnimation arranca la animación; false si ya estaba corriendo
func (s *Scene) StartAnimation(ctx context.Context) bool {
	started := s.animator.Start(ctx)
	if started {
		s.logger.Debug("Animación iniciada")
	}
	return started
}

// StopAnimation detiene la animación; seguro aunque no esté corriendo
func (s *Scene) StopAnimation() {
	s.animator.Stop()
}

// Animating indica si la animación está activa
func (s *Scene) Animating() bool {
	return s.animator.Running()
}

// Subscribe recibe cada frame publicado como SVG. Si el lector se atrasa
// solo se conserva el frame más reciente.
func (s *Scene) Subscribe() (<-chan string, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan string, 1)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Subscribers cantidad de suscripciones abiertas
func (s *Scene) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close detiene la animación y cierra las suscripciones
func (s *Scene) Close() {
	s.StopAnimation()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Scene) drawLocked() Drawing {
	return Render(s.config, s.actors, s.weather, s.frame)
}

func (s *Scene) publish(d Drawing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	frame := d.SVG()
	for _, ch := range s.subs {
		// Descartar el frame pendiente para no bloquear el tick
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- frame:
		default:
		}
	}
}
