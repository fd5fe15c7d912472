package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer. Wrap these with fmt.Errorf("%w: ...")
// or DomainError so callers can classify failures with errors.Is.
var (
	// ErrConnection means the transport never received a response.
	ErrConnection = fmt.Errorf("connection failed")
	// ErrStreamUnsupported means the server answered with a success status
	// but no streamable body.
	ErrStreamUnsupported = fmt.Errorf("streaming not supported by response")
	// ErrGeneration is the terminal failure carried by a protocol error event.
	ErrGeneration = fmt.Errorf("generation failed")
	// ErrMalformedFrame is raised in strict mode when a recognized event
	// carries an unparseable payload.
	ErrMalformedFrame = fmt.Errorf("malformed stream frame")

	// HTTP status classification.
	ErrRateLimit     = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid   = fmt.Errorf("authentication failed")
	ErrProviderError = fmt.Errorf("provider error")

	// ErrTokenBudget means the outbound prompt exceeds the configured budget.
	ErrTokenBudget = fmt.Errorf("prompt exceeds token budget")

	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrDecryption   = fmt.Errorf("decryption failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "generation.stream")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed
// on retry. Auth failures and protocol error events are not retryable.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderError) || errors.Is(err, ErrConnection)
}

// IsCancellation reports whether err is a caller-initiated cancellation rather
// than a server or protocol failure. Callers use this to suppress error UI for
// intentional aborts.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
