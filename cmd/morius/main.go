package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ReisolRius/MoRius-sub001/internal/adapter/generation"
	"github.com/ReisolRius/MoRius-sub001/internal/domain"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/config"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/logger"
	"github.com/ReisolRius/MoRius-sub001/internal/infra/tracer"
	"github.com/ReisolRius/MoRius-sub001/internal/usecase"
)

// instructionList collects repeated -instruction title=content flags.
type instructionList []domain.Instruction

func (l *instructionList) String() string { return fmt.Sprintf("%d instructions", len(*l)) }

func (l *instructionList) Set(v string) error {
	title, content, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("instruction must be title=content, got %q", v)
	}
	*l = append(*l, domain.Instruction{Title: title, Content: content})
	return nil
}

func main() {
	if err := run(); err != nil {
		if domain.IsCancellation(err) {
			// Intentional abort, not an error.
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = flag.String("config", "morius.yaml", "path to config file")
		chatID       = flag.Int64("chat", 0, "chat id to generate into")
		prompt       = flag.String("prompt", "", "user prompt (empty with -reroll regenerates the last reply)")
		reroll       = flag.Bool("reroll", false, "regenerate the last assistant message")
		strict       = flag.Bool("strict", false, "fail on malformed stream frames instead of skipping them")
		instructions instructionList
	)
	flag.Var(&instructions, "instruction", "steering instruction as title=content (repeatable)")
	flag.Parse()

	if *chatID == 0 {
		return fmt.Errorf("%w: -chat is required", domain.ErrInvalidInput)
	}
	if *prompt == "" && !*reroll {
		return fmt.Errorf("%w: provide -prompt or -reroll", domain.ErrInvalidInput)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	tolerance := generation.ToleranceLenient
	if *strict {
		tolerance = generation.ToleranceStrict
	}

	streamLog := logger.Component(log, "stream")
	var gen domain.Generator = generation.NewClient(cfg.Client, streamLog, generation.WithTolerance(tolerance))
	gen = generation.NewCircuitBreakerClient(gen, cfg.Breaker, streamLog)
	gen = generation.NewRateLimitedClient(gen, cfg.Limits, streamLog)

	session := usecase.NewSession(gen, cfg.Limits, logger.Component(log, "session"))
	req := domain.GenerateRequest{
		Prompt:       *prompt,
		Reroll:       *reroll,
		Instructions: instructions,
	}

	msg, err := session.Run(ctx, *chatID, req, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout)
	log.Info("message persisted", "message_id", msg.ID, "chat_id", msg.ChatID)
	return nil
}
