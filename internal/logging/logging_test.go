package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/cibot/internal/config"
)

func TestNew_TextAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, config.LoggingConfig{Level: "info", Format: "text"})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("found key", "key", "node1:RSpec")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `msg="found key"`)
	assert.Contains(t, out, "key=node1:RSpec")
	assert.Contains(t, out, "app=cibot")
}

func TestNew_DebugFlagLowersLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, config.LoggingConfig{Level: "warn", Debug: true})
	require.NoError(t, err)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, config.LoggingConfig{Level: "INFO", Format: "json"})
	require.NoError(t, err)
	log.Info("copying results file", "file", "coverage_nodes/node1/spec_coverage/.resultset.json")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "copying results file", rec["msg"])
	assert.Equal(t, "coverage_nodes/node1/spec_coverage/.resultset.json", rec["file"])
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(&bytes.Buffer{}, config.LoggingConfig{Level: "chatty"})
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
