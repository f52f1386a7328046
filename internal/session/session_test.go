package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/PhelGc/roadsphere/internal/evaluator"
	"github.com/PhelGc/roadsphere/internal/scenario"
	"github.com/PhelGc/roadsphere/internal/scene"
	"github.com/PhelGc/roadsphere/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeBackend struct{ text string }

func (f fakeBackend) Generate(context.Context, string) (string, error) { return f.text, nil }

func newManager(text string) *Manager {
	ai := evaluator.NewClientWithBackend(fakeBackend{text: text}, nil, nil)
	return NewManager(Options{Backend: storage.NewMemory(), AI: ai})
}

func TestGetCreatesAndReuses(t *testing.T) {
	m := newManager("{}")
	defer m.Close()

	s, created := m.Get("")
	require.True(t, created)
	assert.NotEmpty(t, s.ID)

	again, created := m.Get(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	other, created := m.Get("not-a-uuid")
	assert.True(t, created)
	assert.NotEqual(t, "not-a-uuid", other.ID)
	assert.Equal(t, 2, m.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	m := newManager(`{"problem":"p","riskScore":80,"interventions":["Improve lighting"]}`)
	defer m.Close()

	a, _ := m.Get("")
	b, _ := m.Get("")

	_, err := a.Scenario.Submit(ctx, scenario.Form{RoadType: "rural"})
	require.NoError(t, err)

	_, ok := b.Scenario.Restore(ctx)
	assert.False(t, ok)

	cfg, err := a.ApplyPackage(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.Lighting)

	_, err = b.ApplyPackage(ctx)
	assert.ErrorIs(t, err, scene.ErrNoAnalysis)
}

func TestCloseStopsAnimations(t *testing.T) {
	m := newManager("{}")
	s, _ := m.Get("")
	require.True(t, s.Scene.StartAnimation(context.Background()))

	m.Close()
	assert.False(t, s.Scene.Animating())
	assert.Zero(t, m.Len())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ai := evaluator.NewClientWithBackend(fakeBackend{text: `{"problem":"p","riskScore":40}`}, nil, nil)
	m := NewManager(Options{
		Backend: storage.NewMemory(),
		AI:      ai,
		IdleTTL: 10 * time.Minute,
		Now:     func() time.Time { return now },
	})
	defer m.Close()

	idle, _ := m.Get("")
	_, err := idle.Scenario.Submit(ctx, scenario.Form{})
	require.NoError(t, err)
	require.True(t, idle.Scene.StartAnimation(ctx))

	watched, _ := m.Get("")
	_, unsubscribe := watched.Scene.Subscribe()
	defer unsubscribe()

	now = now.Add(8 * time.Minute)
	active, _ := m.Get("")
	assert.Zero(t, m.Sweep())

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 2, m.Len())
	assert.False(t, idle.Scene.Animating(), "la escena descartada se detiene")

	again, _ := m.Get(active.ID)
	assert.Same(t, active, again)

	// El estado guardado sobrevive al descarte
	restored, created := m.Get(idle.ID)
	require.True(t, created)
	assert.NotSame(t, idle, restored)
	view, ok := restored.Scenario.Restore(ctx)
	require.True(t, ok)
	assert.Equal(t, 40, view.RiskScore)
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	m := newManager("{}")
	defer m.Close()

	m.Get("")
	assert.Zero(t, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestRunStopsWithContext(t *testing.T) {
	m := NewManager(Options{Backend: storage.NewMemory(), IdleTTL: time.Minute})
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run no terminó al cancelar el contexto")
	}
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, time.Second, sweepInterval(time.Second))
	assert.Equal(t, 5*time.Minute, sweepInterval(20*time.Minute))
}
