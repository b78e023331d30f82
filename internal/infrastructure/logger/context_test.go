package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_DefaultsToNop(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
}

func TestWithUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-1")
	ctx, l := WithUser(ctx, FromContext(ctx), "u-7", "branch")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "u-7", GetUserID(ctx))
	assert.Equal(t, "branch", GetRole(ctx))
	assert.Same(t, l, FromContext(ctx))

	l.Info("opened")
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "u-7", fields["user_id"])
	assert.Equal(t, "branch", fields["role"])
}

func TestContextLogger_TraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := WithContext(trace.ContextWithSpanContext(context.Background(), sc), zap.New(core))

	L(ctx).With(zap.String("order_id", "o-1")).Warn("conflict")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "o-1", fields["order_id"])
}

func TestContextLogger_NoSpan(t *testing.T) {
	assert.Nil(t, TraceFields(context.Background()))
}

func TestUsing_AddsContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx, _ := WithUser(context.Background(), zap.NewNop(), "u-1", "production")

	Using(ctx, zap.New(core)).Info("export generated")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "production", fields["role"])
	assert.NotContains(t, fields, "request_id")
}

func TestUsing_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Using(context.Background(), nil).Error("x")
	})
}
