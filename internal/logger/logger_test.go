package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		l, err := New(tc.level, "json")
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(tc.want), tc.level)
		if tc.want > zapcore.DebugLevel {
			assert.False(t, l.Core().Enabled(tc.want-1), tc.level)
		}
	}
}

func TestMustConsole(t *testing.T) {
	assert.NotPanics(t, func() {
		Must("info", "console").Info("ready")
	})
}
