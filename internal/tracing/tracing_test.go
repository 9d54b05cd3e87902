package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetupDisabledInstallsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	if _, ok := otel.GetTracerProvider().(noop.TracerProvider); !ok {
		t.Fatalf("expected noop provider, got %T", otel.GetTracerProvider())
	}
}

func TestSetupEmptyExporterIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: true})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())
	if _, ok := otel.GetTracerProvider().(noop.TracerProvider); !ok {
		t.Fatalf("expected noop provider for empty exporter, got %T", otel.GetTracerProvider())
	}
}

func TestSetupFileExporterWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "traces.json")
	shutdown, err := Setup(context.Background(), Config{Enabled: true, Exporter: "file", Path: path})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	_, span := StartSpan(context.Background(), "sim.run", StringAttr("scenario", "demo"), IntAttr("units", 5))
	SetOK(span)
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	otel.SetTracerProvider(noop.NewTracerProvider())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read traces: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected exported span data")
	}
	for _, want := range []string{`"scenario"`, `"demo"`, `"units"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("exported span missing attribute %s:\n%s", want, data)
		}
	}
}

func TestSetupFileExporterRequiresPath(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Enabled: true, Exporter: "file"}); err == nil {
		t.Fatalf("expected error without path")
	}
}

func TestSetupUnsupportedExporter(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Enabled: true, Exporter: "jaeger"}); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

func TestSpanHelpersOnNoop(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())
	_, span := StartSpan(context.Background(), "sim.unit")
	SetOK(span)
	RecordError(span, errors.New("boom"))
	span.End()
}
