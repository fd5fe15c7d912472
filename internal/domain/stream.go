package domain

import "encoding/json"

// StartEvent is the payload of a `start` frame, emitted once when the server
// has allocated message records for the call.
type StartEvent struct {
	AssistantMessageID int64  `json:"assistant_message_id"`
	UserMessageID      *int64 `json:"user_message_id,omitempty"`
}

// ChunkEvent is the payload of a `chunk` frame: one incremental text delta to
// append to the in-progress assistant message.
type ChunkEvent struct {
	AssistantMessageID int64  `json:"assistant_message_id"`
	Delta              string `json:"delta"`
}

// CardEvent is a structured side-effect record carried by a `done` frame,
// describing a card mutation the generation triggered server-side.
type CardEvent struct {
	Type    string          `json:"type"`
	CardID  int64           `json:"card_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DoneEvent is the payload of a `done` frame: the final persisted message
// plus any side effects the server applied while generating.
type DoneEvent struct {
	Message        Message     `json:"message"`
	CardEvents     []CardEvent `json:"card_events,omitempty"`
	ContextTrimmed bool        `json:"context_trimmed,omitempty"`
}

// ErrorEvent is the payload of an `error` frame.
type ErrorEvent struct {
	Detail string `json:"detail"`
}

// StreamHandlers is the per-call handler set. Any nil handler is skipped.
// Handlers are invoked synchronously in frame-completion order from the read
// loop; they must not block.
type StreamHandlers struct {
	OnStart func(StartEvent)
	OnChunk func(ChunkEvent)
	OnDone  func(DoneEvent)
}
