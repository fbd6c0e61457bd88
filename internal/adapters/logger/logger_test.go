package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weft/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestLogger_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)

	log.Info("loading scene files")
	assert.Contains(t, buf.String(), "loading scene files")

	buf.Reset()
	log.Warn("manifest key replaced")
	assert.Contains(t, buf.String(), "manifest key replaced")
}

func TestLogger_DebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)

	log.Debug("noise")
	assert.Empty(t, buf.String())

	log.SetVerbose(true)
	log.Debug("signal")
	assert.Contains(t, buf.String(), "signal")
}

func TestLogger_ErrorChainFormatting(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)

	err := zerr.Wrap(zerr.Wrap(errors.New("yaml: line 3"), "failed to parse scene file"), "scene loading failed")
	log.Error(err)

	out := buf.String()
	assert.Contains(t, out, "Error: scene loading failed")
	assert.Contains(t, out, "Caused by:")
	assert.Contains(t, out, "failed to parse scene file")
	assert.Contains(t, out, "yaml: line 3")
}

func TestLogger_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)
	log.SetJSON(true)

	log.Error(errors.New("boom"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "operation failed", record["msg"])
	assert.Equal(t, "boom", record["error"])
}

func TestLogger_NilErrorIgnored(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New()
	log.SetOutput(&buf)

	log.Error(nil)
	assert.Empty(t, buf.String())
}

func TestCollectErrorEntries_StandardError(t *testing.T) {
	entries := logger.CollectErrorEntries(errors.New("plain"))
	assert.Equal(t, []string{"plain"}, entries)
}

func TestFormatErrorEntries_SingleEntry(t *testing.T) {
	out := logger.FormatErrorEntries([]string{"just one"})
	assert.Equal(t, "Error: just one", out)
}
