package tracer

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ReisolRius/MoRius-sub001/internal/infra/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	tp := otel.GetTracerProvider()
	if _, ok := tp.(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider, got %T", tp)
	}
}

func TestSetupNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "noop"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())
}

func TestSetupStdout(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "stdout"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())
}

func TestSetupUnsupportedExporter(t *testing.T) {
	if _, err := Setup(context.Background(), config.TracerConfig{Enabled: true, Exporter: "zipkin"}); err == nil {
		t.Fatal("expected error for unsupported exporter")
	}
}

func TestSpanHelpers(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "test.op")
	if ctx == nil || span == nil {
		t.Fatal("StartSpan returned nils")
	}
	RecordError(span, errors.New("boom"))
	SetOK(span)
	span.End()

	if StringAttr("k", "v").Key != "k" {
		t.Error("StringAttr key mismatch")
	}
	if IntAttr("n", 1).Value.AsInt64() != 1 {
		t.Error("IntAttr value mismatch")
	}
	if Int64Attr("n64", 7).Value.AsInt64() != 7 {
		t.Error("Int64Attr value mismatch")
	}
	if BoolAttr("b", true).Value.AsBool() != true {
		t.Error("BoolAttr value mismatch")
	}
}
