package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newGormTestLogger(t *testing.T, obsLevel zapcore.Level, gormLevel gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(obsLevel)
	return NewGormLogger(zap.New(core), gormLevel, opts...), recorded
}

func TestNewGormLogger(t *testing.T) {
	gl, _ := newGormTestLogger(t, zapcore.InfoLevel, gormlogger.Info)

	require.NotNil(t, gl)
	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, 200*time.Millisecond, gl.slowThreshold)
	assert.True(t, gl.skipNotFoundErr)
}

func TestGormLoggerOptions(t *testing.T) {
	gl, _ := newGormTestLogger(t, zapcore.InfoLevel, gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.False(t, gl.skipNotFoundErr)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newGormTestLogger(t, zapcore.InfoLevel, gormlogger.Info)

	changed := gl.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gl.level, "original must be untouched")
	clone, ok := changed.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, clone.level)
}

func TestGormLogger_Levels(t *testing.T) {
	t.Run("info passes through", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.InfoLevel, gormlogger.Info)
		gl.Info(context.Background(), "migrated %s", "listings")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "migrated listings")
	})

	t.Run("silent suppresses info", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.InfoLevel, gormlogger.Silent)
		gl.Info(context.Background(), "hidden")

		assert.Empty(t, recorded.All())
	})

	t.Run("warn formats args", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.WarnLevel, gormlogger.Warn)
		gl.Warn(context.Background(), "pool saturated at %d", 42)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "pool saturated at 42")
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("error level", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.ErrorLevel, gormlogger.Error)
		gl.Error(context.Background(), "connection lost")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) {
		return `SELECT * FROM listings WHERE platform = 'ebay'`, 3
	}

	t.Run("query error logs SQL Error", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.ErrorLevel, gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, errors.New("deadlock detected"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Error", logs[0].Message)
	})

	t.Run("record not found is suppressed by default", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.ErrorLevel, gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("slow query logs at warn", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.WarnLevel, gormlogger.Warn,
			WithSlowThreshold(time.Nanosecond),
		)

		gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "SLOW SQL")
	})

	t.Run("normal query logs at debug", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.DebugLevel, gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), query, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "SQL Query", logs[0].Message)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.DebugLevel, gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), query, nil)

		assert.Empty(t, recorded.All())
	})

	t.Run("trace ID from context is attached", func(t *testing.T) {
		gl, recorded := newGormTestLogger(t, zapcore.DebugLevel, gormlogger.Info)
		ctx, spanCtx := contextWithSpan(t)

		gl.Trace(ctx, time.Now(), query, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, spanCtx.TraceID().String(), logs[0].ContextMap()["trace_id"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"verbose", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGormLogLevel(tt.level), tt.level)
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	gl, _ := newGormTestLogger(t, zapcore.InfoLevel, gormlogger.Info)
	var _ gormlogger.Interface = gl
}
