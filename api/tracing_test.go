package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestHandlersContinueIncomingTrace(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(`{"source_index":0,"distance_cm":10}`))
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range rec.Ended() {
		byName[span.Name()] = span
	}
	server, ok := byName["HTTP POST /estimate"]
	if !ok {
		t.Fatalf("no server span among %v", byName)
	}
	if got := server.SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace id = %s", got)
	}
	engineSpan, ok := byName["engine.Estimate"]
	if !ok {
		t.Fatal("no engine span")
	}
	if engineSpan.Parent().SpanID() != server.SpanContext().SpanID() {
		t.Error("engine span is not a child of the server span")
	}
}
