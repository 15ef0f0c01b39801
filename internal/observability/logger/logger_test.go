package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/pricesync/internal/observability/context"
	"github.com/smallbiznis/pricesync/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsRequestFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithProjectID(ctx, "proj_1")
	ctx = correlation.ContextWithCorrelationID(ctx, "corr_abc")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "proj_1", fields["project_id"])
		assert.Equal(t, "corr_abc", fields["correlation_id"])
		assert.NotContains(t, fields, "trace_id")
	}
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "UPDATE", operationFromSQL(`UPDATE "price_changes" SET status = ?`))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)

	log, err := New(nil, Config{Level: "debug", Format: "console"})
	if assert.NoError(t, err) {
		assert.True(t, log.Core().Enabled(zap.DebugLevel))
	}
}

func TestGormTraceLevels(t *testing.T) {
	l := NewGormLogger(100 * time.Millisecond)

	level, ok := l.traceLevel(time.Millisecond, gormlogger.ErrRecordNotFound)
	assert.False(t, ok)
	assert.Equal(t, zapcore.DebugLevel, level)

	level, ok = l.traceLevel(time.Millisecond, errors.New("boom"))
	assert.True(t, ok)
	assert.Equal(t, zapcore.ErrorLevel, level)

	level, ok = l.traceLevel(time.Second, nil)
	assert.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, level)

	_, ok = l.LogMode(gormlogger.Silent).(*GormLogger).traceLevel(time.Second, errors.New("boom"))
	assert.False(t, ok)
}

func TestAccessLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, accessLevel("/health", 200))
	assert.Equal(t, zapcore.ErrorLevel, accessLevel("/api/projects/:slug/price-changes/:id/apply", 502))
	assert.Equal(t, zapcore.InfoLevel, accessLevel("/api/projects/:slug/price-changes", 422))
}
