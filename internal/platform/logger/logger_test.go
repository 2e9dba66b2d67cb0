package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestShouldEnableColor(t *testing.T) {
	t.Setenv("LOG_COLOR", "0")
	assert.False(t, shouldEnableColor())

	t.Setenv("LOG_COLOR", "1")
	assert.True(t, shouldEnableColor())

	t.Setenv("NO_COLOR", "")
	assert.False(t, shouldEnableColor())
}

func TestSetLevel(t *testing.T) {
	SetLevel("error")
	assert.False(t, Get().Core().Enabled(zapcore.WarnLevel))

	SetLevel("debug")
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestFromContext(t *testing.T) {
	assert.Same(t, Get(), FromContext(context.Background()))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	assert.NotSame(t, Get(), FromContext(ctx))
}
