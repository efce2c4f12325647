package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("unknown"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("visible", "execution_id", "exec-1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "visible", record["msg"])
	assert.Equal(t, "exec-1", record["execution_id"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, "debug", "text").Debug("hello", "module", "executor")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "module=executor")
}
