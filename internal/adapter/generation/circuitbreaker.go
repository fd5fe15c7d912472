package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ReisolRius/MoRius-sub001/internal/domain"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerClient wraps a Generator with circuit breaker protection.
// When stream initiation fails repeatedly, the circuit opens and subsequent
// calls fail fast without reaching the server, preventing retry storms.
// Failures after the stream is established (protocol error events,
// cancellation) do not trip the breaker.
type CircuitBreakerClient struct {
	inner   domain.Generator
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewCircuitBreakerClient wraps inner with a circuit breaker.
// If cfg is zero-valued, sensible defaults are used.
func NewCircuitBreakerClient(inner domain.Generator, cfg config.BreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "generation",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return !isInitiationFailure(err)
		},
	})

	return &CircuitBreakerClient{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Generate implements domain.Generator. Calls are routed through the breaker.
func (c *CircuitBreakerClient) Generate(ctx context.Context, chatID int64, req domain.GenerateRequest, h domain.StreamHandlers) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.inner.Generate(ctx, chatID, req, h)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("generation circuit open: %w", err)
		}
		return err
	}
	return nil
}

// State returns the current circuit breaker state for monitoring.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (c *CircuitBreakerClient) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// isInitiationFailure reports whether err occurred while opening the stream
// rather than mid-stream. Only initiation failures count against the breaker:
// a server that streams an error event is still accepting connections.
func isInitiationFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, domain.ErrConnection) ||
		errors.Is(err, domain.ErrRateLimit) ||
		errors.Is(err, domain.ErrAuthInvalid) ||
		errors.Is(err, domain.ErrProviderError) ||
		errors.Is(err, domain.ErrStreamUnsupported)
}

// Compile-time interface check.
var _ domain.Generator = (*CircuitBreakerClient)(nil)
