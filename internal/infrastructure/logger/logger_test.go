package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"default config", DefaultConfig()},
		{"json to stderr", &Config{Level: "warn", Format: "json", Output: "stderr"}},
		{"unknown level falls back to info", &Config{Level: "verbose", Format: "console"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stock_it_up.log")

	l, err := New(&Config{Level: "info", Format: "console", Output: "stdout", File: path})
	require.NoError(t, err)

	l.Info("order received", zap.String("order", "A-1"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "order received", entry["msg"])
	assert.Equal(t, "A-1", entry["order"])
	assert.Equal(t, "info", entry["level"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestContext(t *testing.T) {
	t.Run("returns nop logger when absent", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
		assert.Empty(t, GetRequestID(context.Background()))
	})

	t.Run("round trips logger and request id", func(t *testing.T) {
		l := zap.NewExample()
		ctx := WithContext(context.Background(), l)
		ctx = withRequestID(ctx, "req-1")

		assert.Same(t, l, FromContext(ctx))
		assert.Equal(t, "req-1", GetRequestID(ctx))
	})
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, 100*time.Millisecond)
	ctx := withRequestID(context.Background(), "req-42")

	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(ctx, time.Now(), sql, nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	gl.Trace(ctx, time.Now(), sql, gormlogger.ErrRecordNotFound)
	gl.Trace(ctx, time.Now(), sql, assert.AnError)

	logs := recorded.All()
	require.Len(t, logs, 4)
	assert.Equal(t, "SQL", logs[0].Message)
	assert.Equal(t, "Slow SQL", logs[1].Message)
	assert.Equal(t, "SQL", logs[2].Message, "record not found is not an error")
	assert.Equal(t, "SQL error", logs[3].Message)
	assert.Equal(t, "req-42", logs[3].ContextMap()["request_id"])
}

func TestGormLogger_Silent(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, 0).LogMode(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, assert.AnError)

	assert.Empty(t, recorded.All())
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, GormLevel("debug", true))
	assert.Equal(t, gormlogger.Warn, GormLevel("debug", false))
	assert.Equal(t, gormlogger.Error, GormLevel("error", true))
	assert.Equal(t, gormlogger.Warn, GormLevel("info", true))
}
