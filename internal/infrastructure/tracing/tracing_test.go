package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/geominder/core/internal/infrastructure/config"
	"github.com/geominder/core/internal/infrastructure/logger"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return recorder
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(config.AppConfig{Name: "test"}, config.TracingConfig{Enabled: false}, logger.NewNop())
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_RejectsSamplingRate(t *testing.T) {
	_, err := NewProvider(config.AppConfig{Name: "test"}, config.TracingConfig{Enabled: true, SamplingRate: 2}, logger.NewNop())
	assert.Error(t, err)
}

func TestStartSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, end := StartSpan(context.Background(), "reminders.get", attribute.String("reminder.id", "r-1"))
	end(nil)

	_, end = StartSpan(context.Background(), "reminders.save")
	end(errors.New("disk full"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "reminders.get", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("reminder.id", "r-1"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "disk full", spans[1].Status().Description)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}
