package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "info", Service: "ledger", Out: &buf})

	l.Named("router").Info().Str("order_id", "o1").Msg("asignada")

	var ev map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ev))
	assert.Equal(t, "ledger", ev["service"])
	assert.Equal(t, "router", ev["component"])
	assert.Equal(t, "o1", ev["order_id"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "warn", Out: &buf})

	l.Info().Msg("descartado")
	assert.Zero(t, buf.Len())
}
