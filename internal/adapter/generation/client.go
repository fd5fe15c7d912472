package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/ReisolRius/MoRius-sub001/internal/domain"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/config"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/tracer"
)

// Tolerance controls how malformed frames are handled.
type Tolerance int

const (
	// ToleranceLenient silently skips frames whose payload fails to parse,
	// on the theory that one malformed incremental chunk should not abort
	// an otherwise-working stream.
	ToleranceLenient Tolerance = iota
	// ToleranceStrict turns an unparseable payload on a recognized event
	// into a terminal failure.
	ToleranceStrict
)

// readBufferSize is the size of the per-call read buffer.
const readBufferSize = 4096

// Client consumes the generation service's streaming endpoint. A Client is
// safe for concurrent Generate calls: every call owns its own decoder buffer
// and failure slot.
type Client struct {
	baseURL   string
	token     string
	client    *http.Client
	logger    *slog.Logger
	tolerance Tolerance
}

// Option configures a Client.
type Option func(*Client)

// WithTolerance sets the malformed-frame policy.
func WithTolerance(t Tolerance) Option {
	return func(c *Client) { c.tolerance = t }
}

// WithHTTPClient overrides the pooled default, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a streaming generation client.
func NewClient(cfg config.ClientConfig, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  NewHTTPClient(cfg),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate implements domain.Generator. It issues one POST, then runs a
// sequential read loop: await the next raw chunk, synchronously decode and
// dispatch completed frames, repeat until the body drains. An error frame
// records a terminal failure but lets the loop run to completion first, so
// frames already on the wire behind it are still dispatched.
func (c *Client) Generate(ctx context.Context, chatID int64, req domain.GenerateRequest, h domain.StreamHandlers) error {
	ctx, span := tracer.StartSpan(ctx, "generation.stream",
		trace.WithAttributes(
			tracer.Int64Attr("gen.chat_id", chatID),
			tracer.BoolAttr("gen.reroll", req.Reroll),
		),
	)
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		tracer.RecordError(span, err)
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chats/%d/generate", c.baseURL, chatID)
	resp, err := c.doStreamRequest(ctx, url, body)
	if err != nil {
		tracer.RecordError(span, err)
		return domain.WrapOp("generation.request", err)
	}
	defer resp.Body.Close()

	// Per-call state. Never shared across calls.
	var (
		dec      frameDecoder
		terminal error
		frames   int
	)

	buf := make([]byte, readBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, frame := range dec.push(buf[:n]) {
				frames++
				if err := c.dispatch(frame, h, &terminal); err != nil {
					if terminal != nil {
						err = terminal
					}
					tracer.RecordError(span, err)
					return err
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// An error frame already decided the outcome; an abrupt close
			// behind it must not replace it with a second failure.
			if terminal != nil {
				tracer.RecordError(span, terminal)
				return terminal
			}
			err := fmt.Errorf("%w: %v", domain.ErrConnection, readErr)
			tracer.RecordError(span, err)
			return domain.WrapOp("generation.stream", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	// Some servers end the stream without a trailing delimiter.
	if tail, ok := dec.flush(); ok {
		frames++
		if err := c.dispatch(tail, h, &terminal); err != nil {
			if terminal != nil {
				err = terminal
			}
			tracer.RecordError(span, err)
			return err
		}
	}

	if terminal != nil {
		tracer.RecordError(span, terminal)
		return terminal
	}

	tracer.SetOK(span)
	c.logger.Debug("generation stream completed", "chat_id", chatID, "frames", frames)
	return nil
}

// dispatch parses one candidate frame and invokes the matching handler.
// It returns a non-nil error only for strict-mode parse failures; protocol
// error events land in *terminal instead so the read loop keeps draining.
func (c *Client) dispatch(frame string, h domain.StreamHandlers, terminal *error) error {
	name, payload, ok := parseFrame(frame)
	if !ok {
		return nil
	}

	switch name {
	case eventStart:
		var ev domain.StartEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return c.skipMalformed(name, err)
		}
		if h.OnStart != nil {
			h.OnStart(ev)
		}
	case eventChunk:
		var ev domain.ChunkEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return c.skipMalformed(name, err)
		}
		if h.OnChunk != nil {
			h.OnChunk(ev)
		}
	case eventDone:
		var ev domain.DoneEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return c.skipMalformed(name, err)
		}
		if h.OnDone != nil {
			h.OnDone(ev)
		}
	case eventError:
		var ev domain.ErrorEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return c.skipMalformed(name, err)
		}
		// First terminal failure wins; later error frames are ignored.
		if *terminal == nil {
			*terminal = domain.NewDomainError("generation.stream", domain.ErrGeneration, ev.Detail)
		}
	default:
		// Unknown event names are skipped for forward compatibility.
		c.logger.Debug("skipping unknown stream event", "event", name)
	}
	return nil
}

// skipMalformed applies the tolerance policy to a payload parse failure.
func (c *Client) skipMalformed(event string, err error) error {
	if c.tolerance == ToleranceStrict {
		return domain.NewDomainError("generation.stream", domain.ErrMalformedFrame, fmt.Sprintf("%s event: %v", event, err))
	}
	c.logger.Debug("skipping malformed stream frame", "event", event, "error", err)
	return nil
}

// Compile-time interface check.
var _ domain.Generator = (*Client)(nil)
