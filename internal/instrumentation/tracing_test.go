package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSheetsSpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartSheetsSpan(context.Background(), SheetsOpBatchGet, "sheet-123", 6)
	if GetTraceID(ctx) == "" {
		t.Error("expected trace id in span context")
	}
	EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "sheets.batch_get" {
		t.Errorf("expected span name 'sheets.batch_get', got %q", s.Name())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("expected status OK, got %v", s.Status().Code)
	}

	attrs := map[string]any{}
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs[SpanAttrSpreadsheet] != "sheet-123" {
		t.Errorf("expected spreadsheet attribute 'sheet-123', got %v", attrs[SpanAttrSpreadsheet])
	}
	if attrs[SpanAttrRangeCount] != int64(6) {
		t.Errorf("expected range count 6, got %v", attrs[SpanAttrRangeCount])
	}
}

func TestStartStoreSpan_Error(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartStoreSpan(context.Background(), "sqlite", StoreOpInsert, 27)
	EndSpan(span, errors.New("disk full"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected status Error, got %v", spans[0].Status().Code)
	}
	if spans[0].Status().Description != "disk full" {
		t.Errorf("expected description 'disk full', got %q", spans[0].Status().Description)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestStartSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "pipeline.save")
	SetSpanError(span, nil)
	span.End()

	if got := recorder.Ended(); len(got) != 1 || got[0].Name() != "pipeline.save" {
		t.Errorf("unexpected spans: %v", got)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
