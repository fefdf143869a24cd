package tracing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSafeAttributesDropsUnknownKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("ledger.source", "subscriptions"),
		attribute.String("ledger.cursor", "a|b|c|d"),
		attribute.String("customer_id", "u_1"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("ledger.source"), attrs[0].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	long := SafeError(errors.New(strings.Repeat("x", 400)))
	assert.Len(t, long.Error(), 256)
}

func TestStartAndEndSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(previous)

	_, span := StartSpan(context.Background(), "test", "ledger.fetch", attribute.String("ledger.source", "subscriptions"))
	EndSpan(span, errors.New("boom"))

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, "ledger.fetch", spans[0].Name())
		assert.Len(t, spans[0].Events(), 1)
	}
}
