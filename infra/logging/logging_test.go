package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "debug", Format: "json", Output: &buf}))

	For("scanner").Debug("scan done", "reclaimed", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "scanner", rec["component"])
	assert.Equal(t, "scan done", rec["msg"])
	assert.Equal(t, float64(3), rec["reclaimed"])
}

func TestInitFiltersBelowLevel(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "warn", Output: &buf}))

	For("x").Info("hidden")
	assert.Empty(t, buf.String())
	For("x").Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitRejectsBadOptions(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	assert.Error(t, Init(Options{Level: "loud"}))
	assert.Error(t, Init(Options{Format: "xml"}))
}
