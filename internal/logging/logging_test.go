package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestBase_ConcurrentFirstUse(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*slog.Logger, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Base()
		}(i)
	}
	wg.Wait()

	for _, l := range got {
		assert.Same(t, got[0], l)
	}
	assert.Same(t, got[0], Init("other", "", "debug"))
}

func TestWithTrace(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(WithTrace(slog.NewJSONHandler(&buf, nil))).With("component", "test")

	l.Info("no span")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "trace_id")

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "work")
	defer span.End()

	buf.Reset()
	l.InfoContext(ctx, "in span")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
	assert.Equal(t, "test", rec["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}
