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

func query(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, 100*time.Millisecond)

	ctx, _ := WithUser(context.Background(), zap.NewNop(), "u-1", "production")

	gl.Trace(ctx, time.Now(), query("SELECT 1", 1), nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), query("SELECT pg_sleep(1)", 1), nil)
	gl.Trace(ctx, time.Now(), query("INSERT", 0), errors.New("duplicate key"))
	gl.Trace(ctx, time.Now(), query("SELECT *", 0), gormlogger.ErrRecordNotFound)

	all := logs.All()
	require.Len(t, all, 3)
	assert.Equal(t, "SQL Query", all[0].Message)
	assert.Equal(t, "u-1", all[0].ContextMap()["user_id"])
	assert.Equal(t, "Slow SQL", all[1].Message)
	assert.Equal(t, "SQL Error", all[2].Message)
}

func TestGormLogger_Silent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, 0).LogMode(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), query("SELECT 1", 1), errors.New("x"))
	gl.Error(context.Background(), "ignored %d", 1)

	assert.Zero(t, logs.Len())
}

func TestGormLogger_WarnLevelSkipsQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn, 0)

	gl.Trace(context.Background(), time.Now().Add(-time.Hour), query("SELECT 1", 1), nil)
	gl.Warn(context.Background(), "pool at %d%%", 90)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "pool at 90%", logs.All()[0].Message)
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, GormLevel("silent"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Warn, GormLevel(""))
}
