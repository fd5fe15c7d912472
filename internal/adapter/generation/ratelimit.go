package generation

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/ReisolRius/MoRius-sub001/internal/domain"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/config"
)

// RateLimitedClient wraps a Generator with a client-side rate limiter so a
// reroll-happy caller cannot hammer the generation endpoint. The wait honors
// ctx, so cancelling while queued returns the cancellation outcome without a
// network call.
type RateLimitedClient struct {
	inner   domain.Generator
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimitedClient wraps inner with a limiter built from cfg.
// A zero RequestsPerMin means no throttling.
func NewRateLimitedClient(inner domain.Generator, cfg config.LimitsConfig, logger *slog.Logger) *RateLimitedClient {
	var limiter *rate.Limiter
	if cfg.RequestsPerMin > 0 {
		burst := cfg.BurstSize
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMin)/60.0, burst)
	}
	return &RateLimitedClient{
		inner:   inner,
		limiter: limiter,
		logger:  logger,
	}
}

// Generate implements domain.Generator.
func (c *RateLimitedClient) Generate(ctx context.Context, chatID int64, req domain.GenerateRequest, h domain.StreamHandlers) error {
	if c.limiter != nil {
		if c.limiter.Tokens() < 1 {
			c.logger.Debug("generation call waiting on rate limiter", "chat_id", chatID)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
	return c.inner.Generate(ctx, chatID, req, h)
}

// Compile-time interface check.
var _ domain.Generator = (*RateLimitedClient)(nil)
