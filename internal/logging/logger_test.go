package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipnote.app/cli/internal/config"
)

func TestNewWithOutput_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "warn"}, false, &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithOutput_DebugFlagWins(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "error"}, true, &buf)

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewWithOutput_UnknownLevelFallsBackToWarn(t *testing.T) {
	logger := NewWithOutput(config.LogConfig{Level: "chatty"}, false, &bytes.Buffer{})
	assert.True(t, logger.IsWarn())
	assert.False(t, logger.IsInfo())
}

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.LogConfig{Level: "info", JSON: true}, false, &buf)

	logger.Info("hello", "key", "value")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["@message"])
	assert.Equal(t, "value", line["key"])
}
