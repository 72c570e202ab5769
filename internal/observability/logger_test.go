package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	old := Logger
	t.Cleanup(func() { Logger = old })

	if err := InitLogger("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestInitLoggerAppliesLevel(t *testing.T) {
	old := Logger
	t.Cleanup(func() { Logger = old })

	if err := InitLogger("warn"); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	if Logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info to be disabled at warn level")
	}
	if !Logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("expected warn to be enabled")
	}
}

func TestLoggerWithTraceAddsSpanFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	old := Logger
	Logger = zap.New(core)
	t.Cleanup(func() { Logger = old })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	LoggerWithTrace(ctx).Info("hello")
	LoggerWithTrace(context.Background()).Info("plain")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["trace_id"] != sc.TraceID().String() {
		t.Fatalf("expected trace_id %q, got %#v", sc.TraceID().String(), fields["trace_id"])
	}
	if fields["span_id"] != sc.SpanID().String() {
		t.Fatalf("expected span_id %q, got %#v", sc.SpanID().String(), fields["span_id"])
	}

	if _, ok := entries[1].ContextMap()["trace_id"]; ok {
		t.Fatal("did not expect trace_id without an active span")
	}
}

func TestServiceNamePrecedence(t *testing.T) {
	t.Cleanup(func() { SetServiceName("") })

	t.Setenv("OTEL_SERVICE_NAME", "")
	if got := ServiceName(); got != defaultServiceName {
		t.Fatalf("expected %q, got %q", defaultServiceName, got)
	}

	SetServiceName("configured")
	if got := ServiceName(); got != "configured" {
		t.Fatalf("expected %q, got %q", "configured", got)
	}

	t.Setenv("OTEL_SERVICE_NAME", "from-env")
	if got := ServiceName(); got != "from-env" {
		t.Fatalf("expected %q, got %q", "from-env", got)
	}
}
