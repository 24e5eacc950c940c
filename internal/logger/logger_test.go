package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"info":    zap.InfoLevel,
		"warn":    zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"verbose": zap.InfoLevel,
	}
	for level, want := range cases {
		t.Run(level, func(t *testing.T) {
			l, err := New(level, "console")
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(want))
			if want > zap.DebugLevel {
				assert.False(t, l.Core().Enabled(want-1))
			}
		})
	}
}

func TestInit_ReplacesGlobals(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	l := Init("warn", "json")
	assert.Same(t, l, Log)
	assert.Same(t, l, zap.L())
}
