package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cepclima/server/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Output: &buf})
	defer Disable()

	Debug().Msg("hidden")
	Info().Str("action", "CONSULT_ZIP_CODE").Msg("classified")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "classified", entry["message"])
	assert.Equal(t, "CONSULT_ZIP_CODE", entry["action"])
	assert.Equal(t, "cepclima", entry["service"])
}

func TestInitLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Output: &buf, Level: "warn"})
	defer Disable()

	Info().Msg("skipped")
	Warn().Msg("kept")
	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), "kept")
}
