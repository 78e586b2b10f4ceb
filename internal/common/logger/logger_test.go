package logger

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{ServiceName: "chart-analyst-bot", Format: FormatJSON, Out: &buf}))

	buf.Reset()
	log := Component("router")
	log.Info().Int64("chat_id", 555).Msg("Command received")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "chart-analyst-bot", entry["service"])
	assert.Equal(t, "router", entry["component"])
	assert.Equal(t, "Command received", entry["message"])
	assert.Contains(t, entry, "timestamp")
}

func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "warn", Format: FormatJSON, Out: &buf}))

	buf.Reset()
	log := Component("x")
	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInit_Console(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Debug: true, Out: &buf}))

	buf.Reset()
	log := Component("x")
	log.Debug().Msg("visible in debug")
	assert.Contains(t, buf.String(), "| visible in debug")
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("", false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	level, err = parseLevel("", true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	level, err = parseLevel("ERROR", false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, level)

	_, err = parseLevel("loud", false)
	assert.Error(t, err)
}

func TestInit_UnknownFormat(t *testing.T) {
	assert.Error(t, Init(Options{Format: "xml"}))
}
