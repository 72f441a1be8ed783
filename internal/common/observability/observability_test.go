package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"kredmitra/internal/common/logger"
)

func TestStartSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	o := &Observability{tracer: tp.Tracer("test")}

	_, span := o.StartSpan(context.Background(), "pipeline.web", attribute.String("channel", "web"))
	EndSpan(span, errors.New("model unavailable"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.web", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("channel", "web"))
}

func TestNew_RecordsWithoutPanicking(t *testing.T) {
	o := New("kredmitra-test", logger.NewTestLogger(t))
	ctx, span := o.StartSpan(context.Background(), "job")
	o.RecordJobProcessed(ctx, "score-applicant", "success")
	o.RecordJobDuration(ctx, "score-applicant", 120*time.Millisecond, "success")
	EndSpan(span, nil)
	o.Shutdown()
}
