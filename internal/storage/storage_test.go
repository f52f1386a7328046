package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhelGc/roadsphere/internal/evaluator"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	file, err := NewFile(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	lite, err := NewSQLite(filepath.Join(t.TempDir(), "db", "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	return map[string]Backend{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": lite,
	}
}

func TestBackendContract(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(ctx, "s1", "k")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Put(ctx, "s1", "k", []byte(`{"a":1}`)))
			require.NoError(t, b.Put(ctx, "s1", "k", []byte(`{"a":2}`)))
			got, err := b.Get(ctx, "s1", "k")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":2}`, string(got))

			_, err = b.Get(ctx, "s2", "k")
			assert.ErrorIs(t, err, ErrNotFound, "los namespaces están aislados")

			require.NoError(t, b.Delete(ctx, "s1", "k"))
			require.NoError(t, b.Delete(ctx, "s1", "k"), "borrar dos veces no falla")
			_, err = b.Get(ctx, "s1", "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGatewayAnalysisOverwritten(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemory(), "sess", nil)

	_, ok := g.LoadAnalysis(ctx)
	assert.False(t, ok)

	require.NoError(t, g.SaveAnalysis(ctx, evaluator.AnalysisResult{Problem: "first", RiskScore: 10}))
	require.NoError(t, g.SaveAnalysis(ctx, evaluator.AnalysisResult{Problem: "second", RiskScore: 90}))

	got, ok := g.LoadAnalysis(ctx)
	require.True(t, ok)
	assert.Equal(t, "second", got.Problem)
	assert.Equal(t, 90, got.RiskScore)
	assert.Equal(t, []string{}, got.Causes)
}

func TestGatewayMalformedIsAbsent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Put(ctx, "sess", KeyLastAnalysis, []byte("{not json")))

	g := NewGateway(mem, "sess", nil)
	_, ok := g.LoadAnalysis(ctx)
	assert.False(t, ok)
}

func TestFileSanitizesNames(t *testing.T) {
	base := t.TempDir()
	f, err := NewFile(base)
	require.NoError(t, err)

	require.NoError(t, f.Put(context.Background(), "../escape", "a/b", []byte("x")))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "__escape", entries[0].Name())

	_, err = os.Stat(filepath.Join(base, "__escape", "a_b.json"))
	assert.NoError(t, err)
}
