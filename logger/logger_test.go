package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerWritesJSON(t *testing.T) {
	require.NoError(t, Init(Options{Level: "debug", Format: "json"}))
	var buf bytes.Buffer
	SetOutput(&buf)

	log := Component("orders")
	log.Info().Str("order_code", "ORD-1234ABCD").Msg("order placed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "orders", entry["component"])
	assert.Equal(t, "ORD-1234ABCD", entry["order_code"])
	assert.Equal(t, "order placed", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestInitFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init(Options{Level: "chatty"}))
	var buf bytes.Buffer
	SetOutput(&buf)

	log := Get()
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String(), "debug should be filtered at info level")

	log.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "api.log")
	assert.NoError(t, Init(Options{Level: "info", File: path}))
	require.NoError(t, Init(Options{Level: "info"}))
}
