package domain

import "context"

// Generator runs one streaming generation call against a chat, dispatching
// decoded events to h as they arrive. It returns nil when the stream drains
// cleanly, ctx.Err() on caller cancellation, and a wrapped domain error for
// transport or protocol failures. Implementations must keep all per-call
// state local so concurrent calls never share a buffer or failure slot.
type Generator interface {
	Generate(ctx context.Context, chatID int64, req GenerateRequest, h StreamHandlers) error
}
