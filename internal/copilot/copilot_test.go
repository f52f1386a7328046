package copilot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhelGc/roadsphere/internal/evaluator"
	"github.com/PhelGc/roadsphere/internal/storage"
)

type fakeChatter struct {
	contexts []*evaluator.AnalysisResult
}

func (f *fakeChatter) ChatWithContext(_ context.Context, question string, a *evaluator.AnalysisResult) string {
	f.contexts = append(f.contexts, a)
	return "re: " + question
}

func TestSendIgnoresEmpty(t *testing.T) {
	ai := &fakeChatter{}
	c := New(ai, storage.NewGateway(storage.NewMemory(), "s", nil), nil)

	_, ok := c.Send(context.Background(), "   ")
	assert.False(t, ok)
	assert.Empty(t, c.Transcript())
	assert.Empty(t, ai.contexts)
}

func TestSendUsesStoredContext(t *testing.T) {
	ctx := context.Background()
	gw := storage.NewGateway(storage.NewMemory(), "s", nil)
	ai := &fakeChatter{}
	c := New(ai, gw, nil)

	m, ok := c.Send(ctx, "is it safe?")
	require.True(t, ok)
	assert.Equal(t, AI, m.Sender)
	assert.Equal(t, "re: is it safe?", m.Text)
	assert.Nil(t, ai.contexts[0])

	require.NoError(t, gw.SaveAnalysis(ctx, evaluator.AnalysisResult{Problem: "Ice", RiskScore: 66}))
	c.Send(ctx, "and now?")
	require.NotNil(t, ai.contexts[1])
	assert.Equal(t, "Ice", ai.contexts[1].Problem)

	transcript := c.Transcript()
	require.Len(t, transcript, 4)
	assert.Equal(t, []Sender{User, AI, User, AI},
		[]Sender{transcript[0].Sender, transcript[1].Sender, transcript[2].Sender, transcript[3].Sender})
	assert.Contains(t, c.Markdown(), "**You**: and now?")
}

func TestContextSummary(t *testing.T) {
	ctx := context.Background()
	gw := storage.NewGateway(storage.NewMemory(), "s", nil)
	c := New(&fakeChatter{}, gw, nil)

	_, ok := c.Context(ctx)
	assert.False(t, ok)

	require.NoError(t, gw.SaveAnalysis(ctx, evaluator.AnalysisResult{RiskScore: 20}))
	s, ok := c.Context(ctx)
	require.True(t, ok)
	assert.Equal(t, Summary{Title: "Previous Analysis", RiskScore: 20, Interventions: []string{"No interventions available"}}, s)
}
