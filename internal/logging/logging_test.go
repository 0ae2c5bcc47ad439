package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewTo(&buf, "info", "json")
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("keyword evaluated", zap.String("keyword", "running shoes"))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "keyword evaluated", entry["msg"])
	assert.Equal(t, "running shoes", entry["keyword"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "ts")
}

func TestNewTo_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewTo(&buf, "debug", "console")
	require.NoError(t, err)

	log.Debug("visible")
	require.NoError(t, log.Sync())
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}
