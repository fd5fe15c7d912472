package generation

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ReisolRius/MoRius-sub001/internal/domain"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/config"
)

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	inner := &mockGenerator{}
	rl := NewRateLimitedClient(inner, config.LimitsConfig{}, slog.Default())

	for i := 0; i < 50; i++ {
		require.NoError(t, rl.Generate(context.Background(), 1, domain.GenerateRequest{}, domain.StreamHandlers{}))
	}
	assert.Equal(t, 50, inner.calls)
}

func TestRateLimitAllowsBurst(t *testing.T) {
	inner := &mockGenerator{}
	cfg := config.LimitsConfig{RequestsPerMin: 60, BurstSize: 3}
	rl := NewRateLimitedClient(inner, cfg, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Generate(ctx, 1, domain.GenerateRequest{}, domain.StreamHandlers{}))
	}
	assert.Equal(t, 3, inner.calls)
}

func TestRateLimitCancellationWhileQueued(t *testing.T) {
	inner := &mockGenerator{}
	// One call per hour: the second call would queue essentially forever.
	cfg := config.LimitsConfig{RequestsPerMin: 1.0 / 60.0, BurstSize: 1}
	rl := NewRateLimitedClient(inner, cfg, slog.Default())

	require.NoError(t, rl.Generate(context.Background(), 1, domain.GenerateRequest{}, domain.StreamHandlers{}))

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()
	defer cancel()
	err := rl.Generate(ctx, 1, domain.GenerateRequest{}, domain.StreamHandlers{})

	require.Error(t, err)
	assert.True(t, domain.IsCancellation(err))
	assert.Equal(t, 1, inner.calls, "queued call must not reach the server")
}
