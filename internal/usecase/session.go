package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ReisolRius/MoRius-sub001/internal/domain"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/config"
)

// Session drives generation calls for one chat: it guards the prompt against
// the token budget, runs the stream, and accumulates deltas into the final
// assistant message. The streaming core stays ignorant of this state; the
// session owns it.
type Session struct {
	gen     domain.Generator
	logger  *slog.Logger
	budget  int
	counter TokenCounter
}

// NewSession creates a session runner over gen.
func NewSession(gen domain.Generator, cfg config.LimitsConfig, logger *slog.Logger) *Session {
	return &Session{
		gen:     gen,
		logger:  logger,
		budget:  cfg.PromptTokenBudget,
		counter: NewTokenCounter(cfg.TokenEncoding),
	}
}

// Run executes one generation call and returns the final persisted message.
// Deltas are copied to sink as they arrive when sink is non-nil. When the
// stream ends without a done frame, a message is synthesized from the
// accumulated deltas so the caller is never stranded mid-"generating".
func (s *Session) Run(ctx context.Context, chatID int64, req domain.GenerateRequest, sink io.Writer) (*domain.Message, error) {
	callID := newCallID()

	if s.budget > 0 {
		tokens := s.counter.Count(promptText(req))
		if tokens > s.budget {
			return nil, domain.NewDomainError("session.run", domain.ErrTokenBudget,
				fmt.Sprintf("estimated %d tokens, budget %d", tokens, s.budget))
		}
	}

	s.logger.Info("generation call started",
		"call_id", callID,
		"chat_id", chatID,
		"reroll", req.Reroll,
	)

	var (
		content     strings.Builder
		done        *domain.DoneEvent
		assistantID int64
	)
	h := domain.StreamHandlers{
		OnStart: func(ev domain.StartEvent) {
			assistantID = ev.AssistantMessageID
		},
		OnChunk: func(ev domain.ChunkEvent) {
			content.WriteString(ev.Delta)
			if sink != nil {
				io.WriteString(sink, ev.Delta)
			}
		},
		OnDone: func(ev domain.DoneEvent) {
			d := ev
			done = &d
		},
	}

	if err := s.gen.Generate(ctx, chatID, req, h); err != nil {
		if domain.IsCancellation(err) {
			s.logger.Info("generation call cancelled", "call_id", callID, "chat_id", chatID)
		} else {
			s.logger.Error("generation call failed", "call_id", callID, "chat_id", chatID, "error", err)
		}
		return nil, err
	}

	if done != nil {
		s.logger.Info("generation call completed",
			"call_id", callID,
			"chat_id", chatID,
			"message_id", done.Message.ID,
			"card_events", len(done.CardEvents),
		)
		return &done.Message, nil
	}

	// No done frame arrived. Fall back to what we streamed.
	s.logger.Warn("stream ended without done frame", "call_id", callID, "chat_id", chatID)
	return &domain.Message{
		ID:        assistantID,
		ChatID:    chatID,
		Role:      domain.RoleAssistant,
		Content:   content.String(),
		CreatedAt: time.Now(),
	}, nil
}

// newCallID returns a sortable unique id for correlating a call's log lines.
func newCallID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// promptText flattens the request's caller-visible text for token counting.
func promptText(req domain.GenerateRequest) string {
	var b strings.Builder
	b.WriteString(req.Prompt)
	for _, ins := range req.Instructions {
		b.WriteString("\n")
		b.WriteString(ins.Title)
		b.WriteString("\n")
		b.WriteString(ins.Content)
	}
	return b.String()
}
