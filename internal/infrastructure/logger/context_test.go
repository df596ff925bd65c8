package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// capturedLogger returns a JSON logger writing into buf so tests can assert
// on the emitted fields.
func capturedLogger(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core)
}

func TestWithContext(t *testing.T) {
	log, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := WithContext(context.Background(), log)
	assert.NotNil(t, FromContext(ctx))
}

func TestFromContext_Fallbacks(t *testing.T) {
	t.Run("missing logger yields a nop", func(t *testing.T) {
		log := FromContext(context.Background())
		require.NotNil(t, log)
		assert.NotPanics(t, func() { log.Info("briefing assembled") })
	})

	t.Run("wrong value type yields a nop", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
		log := FromContext(ctx)
		require.NotNil(t, log)
		assert.NotPanics(t, func() { log.Info("briefing assembled") })
	})
}

func TestContextEnrichment(t *testing.T) {
	log, err := NewForEnvironment("development")
	require.NoError(t, err)
	ctx := context.Background()

	ctx, log = WithRequestID(ctx, log, "briefing-req-42")
	ctx, log = WithOrgID(ctx, log, "org-acme")
	ctx, log = WithUserID(ctx, log, "user-exec-1")

	assert.Equal(t, "briefing-req-42", GetRequestID(ctx))
	assert.Equal(t, "org-acme", GetOrgID(ctx))
	assert.Equal(t, "user-exec-1", GetUserID(ctx))
	assert.NotNil(t, log)
}

func TestContextGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetOrgID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestWithRequestID_Overrides(t *testing.T) {
	log, err := NewForEnvironment("development")
	require.NoError(t, err)
	ctx := context.Background()

	ctx, _ = WithRequestID(ctx, log, "briefing-req-1")
	assert.Equal(t, "briefing-req-1", GetRequestID(ctx))

	ctx, _ = WithRequestID(ctx, log, "briefing-req-2")
	assert.Equal(t, "briefing-req-2", GetRequestID(ctx))
}

func TestContextKeysAreDistinct(t *testing.T) {
	assert.NotEqual(t, LoggerKey, RequestIDKey)
	assert.NotEqual(t, RequestIDKey, OrgIDKey)
	assert.NotEqual(t, OrgIDKey, UserIDKey)
	assert.NotEqual(t, LoggerKey, UserIDKey)
}

func TestWithRequestID_StoresEnrichedLogger(t *testing.T) {
	base, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx, enriched := WithRequestID(context.Background(), base, "briefing-req-7")

	assert.NotNil(t, FromContext(ctx))
	assert.NotEqual(t, base, enriched)
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	log := FromContext(context.Background())

	assert.NotPanics(t, func() {
		log.Debug("provider cache miss")
		log.Info("feed refreshed")
		log.Warn("provider degraded")
		log.Error("analysis failed")
		log.With(zap.String("provider", "outlook")).Info("fetch complete")
	})
}

func TestTraceCorrelation_NoSpan(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))

	base := zap.NewNop()
	assert.Equal(t, base, WithTraceContext(ctx, base))
}

func TestTraceCorrelation_InvalidSpanContext(t *testing.T) {
	// A noop tracer produces spans with an invalid span context, so none of
	// the trace helpers should add anything.
	tracer := noop.NewTracerProvider().Tracer("briefing")
	ctx, span := tracer.Start(context.Background(), "briefing.assemble")
	defer span.End()

	require.False(t, trace.SpanFromContext(ctx).SpanContext().IsValid())

	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))

	base := zap.NewNop()
	assert.Equal(t, base, WithTraceContext(ctx, base))
}

func TestL(t *testing.T) {
	t.Run("bare context", func(t *testing.T) {
		cl := L(context.Background())
		require.NotNil(t, cl)
		assert.NotNil(t, cl.ctx)
		assert.NotNil(t, cl.logger)
	})

	t.Run("logger from context", func(t *testing.T) {
		base, err := NewForEnvironment("development")
		require.NoError(t, err)

		cl := L(WithContext(context.Background(), base))
		require.NotNil(t, cl)
		assert.NotNil(t, cl.logger)
	})
}

func TestWithLogger(t *testing.T) {
	base, err := NewForEnvironment("development")
	require.NoError(t, err)

	cl := WithLogger(context.Background(), base)
	require.NotNil(t, cl)
	assert.Equal(t, base, cl.logger)
}

func TestContextLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := capturedLogger(&buf)
	ctx := context.Background()

	child := WithLogger(ctx, base).With(zap.String("provider", "gmail"))

	require.NotNil(t, child)
	assert.Equal(t, ctx, child.ctx)
	assert.NotEqual(t, base, child.logger)

	chained := child.With(zap.String("feed", "emails")).With(zap.String("org_id", "org-acme"))
	assert.NotPanics(t, func() { chained.Info("feed assembled") })
}

func TestContextLogger_LogLevels(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	assert.NotPanics(t, func() {
		cl.Debug("provider cache miss")
		cl.Info("feed refreshed")
		cl.Warn("zendesk degraded")
		cl.Error("analysis failed")
	})
}

func TestContextLogger_ZapAndSugar(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	zl := cl.Zap()
	require.NotNil(t, zl)
	assert.NotPanics(t, func() { zl.Info("briefing ready") })

	sugar := cl.Sugar()
	require.NotNil(t, sugar)
	assert.NotPanics(t, func() { sugar.Infof("fetched %d entries", 12) })
}

func TestContextLogger_EnrichesWithContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := capturedLogger(&buf)

	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, base, "briefing-req-42")
	ctx, _ = WithOrgID(ctx, base, "org-acme")
	ctx, _ = WithUserID(ctx, base, "user-exec-1")
	ctx = WithContext(ctx, base)

	L(ctx).Info("briefing assembled", zap.String("provider", "outlook"))

	output := buf.String()
	assert.Contains(t, output, `"request_id":"briefing-req-42"`)
	assert.Contains(t, output, `"org_id":"org-acme"`)
	assert.Contains(t, output, `"user_id":"user-exec-1"`)
	assert.Contains(t, output, `"provider":"outlook"`)
	assert.Contains(t, output, `"msg":"briefing assembled"`)
}

func TestContextLogger_EmptyContextFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	base := capturedLogger(&buf)

	WithLogger(context.Background(), base).Info("feed refreshed")

	output := buf.String()
	assert.Contains(t, output, `"msg":"feed refreshed"`)
	assert.NotContains(t, output, `"request_id":""`)
	assert.NotContains(t, output, `"org_id":""`)
	assert.NotContains(t, output, `"user_id":""`)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background(), logger: nil}
	assert.NotPanics(t, func() { cl.Info("feed refreshed") })
}

func TestContextLogger_RawContextValues(t *testing.T) {
	var buf bytes.Buffer
	base := capturedLogger(&buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "briefing-req-9")
	ctx = context.WithValue(ctx, OrgIDKey, "org-globex")
	ctx = context.WithValue(ctx, UserIDKey, "user-exec-2")

	WithLogger(ctx, base).Info("connections listed")

	output := buf.String()
	assert.Contains(t, output, `"request_id":"briefing-req-9"`)
	assert.Contains(t, output, `"org_id":"org-globex"`)
	assert.Contains(t, output, `"user_id":"user-exec-2"`)
}
