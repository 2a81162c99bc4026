package engine

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestEstimateSpan(t *testing.T) {
	rec := recordSpans(t)
	calc := newCalculator(t)

	if _, err := calc.Estimate(context.Background(), Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := calc.Estimate(context.Background(), Request{SourceIndex: 0, ReferenceDate: referenceDate, Distance: -1}); err == nil {
		t.Fatal("expected an error for a negative distance")
	}

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	ok := spans[0]
	if ok.Name() != "engine.Estimate" {
		t.Errorf("span name = %q", ok.Name())
	}
	if v, found := spanAttr(ok, "isotope"); !found || v.AsString() != "Co-60" {
		t.Errorf("isotope attribute = %v", v)
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("failed estimate status = %v", spans[1].Status())
	}
}
