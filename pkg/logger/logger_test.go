package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/briefkit/econdata/backend/pkg/config"
)

func TestNew_JSONFormat(t *testing.T) {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := New(cfg)
	assert.NotNil(t, log)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestWithField_ReturnsNewLogger(t *testing.T) {
	log := NewNop()
	derived := log.WithField("module", "datapack")

	assert.NotSame(t, log, derived)
}

func TestWithFields(t *testing.T) {
	log := NewNop()
	derived := log.WithFields(map[string]interface{}{
		"provider": "ONS",
		"series":   "L522",
	})

	assert.NotNil(t, derived)
}
