package scene

import (
	"context"
	"sync"
	"time"
)

// Animator ejecuta tick periódicamente en una sola goroutine.
// Start mientras corre no hace nada; Stop espera a que termine el tick en
// curso, así que ningún tick corre después de que Stop retorna.
// tick no debe llamar a métodos del propio Animator.
type Animator struct {
	interval time.Duration
	tick     func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnimator crea un Animator detenido
func NewAnimator(interval time.Duration, tick func()) *Animator {
	return &Animator{interval: interval, tick: tick}
}

// Start arranca el loop. Devuelve false si ya estaba corriendo.
// El loop también se detiene si parent se cancela.
func (a *Animator) Start(parent context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.runningLocked() {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done

	go a.loop(ctx, done)
	return true
}

// Stop cancela el loop y espera a que salga. Sin loop activo no hace nada.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
	a.cancel = nil
	a.done = nil
}

// Running indica si hay un loop activo
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runningLocked()
}

func (a *Animator) runningLocked() bool {
	if a.done == nil {
		return false
	}
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

func (a *Animator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Un tick ya disparado no corre si se canceló mientras tanto
			if ctx.Err() != nil {
				return
			}
			a.tick()
		}
	}
}
