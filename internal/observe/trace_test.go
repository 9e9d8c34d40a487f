package observe

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// capture swaps the default logger for one writing to the returned builder.
func capture(t *testing.T, level slog.Level) *strings.Builder {
	t.Helper()
	var buf strings.Builder
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func installTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestStartSpanRecords(t *testing.T) {
	exp := installTracer(t)

	ctx, span := StartSpan(context.Background(), "segment-detach")
	if !trace.SpanContextFromContext(ctx).HasTraceID() {
		t.Error("context has no trace ID")
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "segment-detach" {
		t.Errorf("span name = %q", spans[0].Name)
	}
}

func TestLoggerCarriesTraceIDs(t *testing.T) {
	installTracer(t)
	buf := capture(t, slog.LevelInfo)

	ctx, span := StartSpan(context.Background(), "log-join")
	defer span.End()

	Logger(ctx).Info("utterance processed")

	out := buf.String()
	if !strings.Contains(out, "trace_id=") || !strings.Contains(out, "span_id=") {
		t.Errorf("log line missing trace fields: %s", out)
	}
}

func TestLoggerWithoutSpan(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	Logger(context.Background()).Info("no span here")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected trace_id without a span: %s", buf.String())
	}
}

func TestDebugIncludesCategory(t *testing.T) {
	buf := capture(t, slog.LevelDebug)

	Debug(context.Background(), CatSTT, "transcription complete", "latency_ms", 42)

	out := buf.String()
	if !strings.Contains(out, "category=stt") {
		t.Errorf("debug output missing category: %s", out)
	}
	if !strings.Contains(out, "latency_ms=42") {
		t.Errorf("debug output missing attrs: %s", out)
	}
}

func TestDebugSilentBelowLevel(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	Debug(context.Background(), CatVAD, "frame classified")

	if buf.Len() != 0 {
		t.Errorf("debug output emitted at info level: %s", buf.String())
	}
}
