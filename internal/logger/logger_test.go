package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, New("DEBUG", false).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("invalid", true).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, New("", false).GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("symbol", "AAPL").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"symbol":"AAPL"`)
}
