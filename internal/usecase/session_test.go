package usecase

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ReisolRius/MoRius-sub001/internal/domain"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/config"
)

// scriptedGenerator replays a fixed event sequence through the handlers.
type scriptedGenerator struct {
	script func(h domain.StreamHandlers) error
	calls  int
}

func (g *scriptedGenerator) Generate(_ context.Context, _ int64, _ domain.GenerateRequest, h domain.StreamHandlers) error {
	g.calls++
	return g.script(h)
}

func TestSessionRunReturnsPersistedMessage(t *testing.T) {
	gen := &scriptedGenerator{script: func(h domain.StreamHandlers) error {
		h.OnStart(domain.StartEvent{AssistantMessageID: 9})
		h.OnChunk(domain.ChunkEvent{AssistantMessageID: 9, Delta: "hel"})
		h.OnChunk(domain.ChunkEvent{AssistantMessageID: 9, Delta: "lo"})
		h.OnDone(domain.DoneEvent{Message: domain.Message{ID: 9, ChatID: 3, Role: domain.RoleAssistant, Content: "hello"}})
		return nil
	}}
	s := NewSession(gen, config.LimitsConfig{}, slog.Default())

	var sink strings.Builder
	msg, err := s.Run(context.Background(), 3, domain.GenerateRequest{Prompt: "hi"}, &sink)

	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.ID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "hello", sink.String(), "sink must receive deltas as they arrive")
}

func TestSessionRunSynthesizesMessageWithoutDoneFrame(t *testing.T) {
	gen := &scriptedGenerator{script: func(h domain.StreamHandlers) error {
		h.OnStart(domain.StartEvent{AssistantMessageID: 4})
		h.OnChunk(domain.ChunkEvent{AssistantMessageID: 4, Delta: "partial"})
		return nil
	}}
	s := NewSession(gen, config.LimitsConfig{}, slog.Default())

	msg, err := s.Run(context.Background(), 2, domain.GenerateRequest{Prompt: "hi"}, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(4), msg.ID)
	assert.Equal(t, int64(2), msg.ChatID)
	assert.Equal(t, domain.RoleAssistant, msg.Role)
	assert.Equal(t, "partial", msg.Content)
}

func TestSessionRunPropagatesFailure(t *testing.T) {
	gen := &scriptedGenerator{script: func(h domain.StreamHandlers) error {
		return domain.NewDomainError("generation.stream", domain.ErrGeneration, "boom")
	}}
	s := NewSession(gen, config.LimitsConfig{}, slog.Default())

	_, err := s.Run(context.Background(), 1, domain.GenerateRequest{Prompt: "hi"}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestSessionRunPropagatesCancellation(t *testing.T) {
	gen := &scriptedGenerator{script: func(h domain.StreamHandlers) error {
		return context.Canceled
	}}
	s := NewSession(gen, config.LimitsConfig{}, slog.Default())

	_, err := s.Run(context.Background(), 1, domain.GenerateRequest{Prompt: "hi"}, nil)

	require.Error(t, err)
	assert.True(t, domain.IsCancellation(err))
}

func TestSessionRunTokenBudgetExceeded(t *testing.T) {
	gen := &scriptedGenerator{script: func(h domain.StreamHandlers) error { return nil }}
	s := NewSession(gen, config.LimitsConfig{PromptTokenBudget: 1}, slog.Default())

	req := domain.GenerateRequest{
		Prompt: strings.Repeat("a very long prompt ", 50),
		Instructions: []domain.Instruction{
			{Title: "style", Content: strings.Repeat("be verbose ", 20)},
		},
	}
	_, err := s.Run(context.Background(), 1, req, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenBudget)
	assert.Zero(t, gen.calls, "budget check must reject before any network call")
}

func TestSessionRunZeroBudgetDisablesCheck(t *testing.T) {
	gen := &scriptedGenerator{script: func(h domain.StreamHandlers) error {
		h.OnDone(domain.DoneEvent{Message: domain.Message{ID: 1}})
		return nil
	}}
	s := NewSession(gen, config.LimitsConfig{PromptTokenBudget: 0}, slog.Default())

	_, err := s.Run(context.Background(), 1, domain.GenerateRequest{Prompt: strings.Repeat("x", 100000)}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestNewCallIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newCallID()
		require.Len(t, id, 26, "ulid string length")
		assert.False(t, seen[id], "duplicate call id %s", id)
		seen[id] = true
	}
}
