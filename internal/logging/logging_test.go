package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewLoggerTo(&buf, Config{Level: "debug", Format: "json"}), "engine")

	logger.Debug().Str("currency", "usd").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "engine", entry["component"])
	require.Equal(t, "usd", entry["currency"])
}

func TestNewLoggerLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, Config{Level: "nonsense"})

	logger.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	logger.Info().Msg("shown")
	require.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.WarnLevel, parseLevel(" WARN "))
	require.Equal(t, zerolog.InfoLevel, parseLevel(""))
	require.Equal(t, zerolog.InfoLevel, parseLevel("loud"))
}
