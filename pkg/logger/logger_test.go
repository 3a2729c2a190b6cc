package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel_ValoresConocidosYPorDefecto(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("cualquiera"))
}

func TestNew_JSONConComponente(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "info", Service: "pos", Output: &buf})

	comp := l.Component("ventas")
	comp.Info().Str("invoice_number", "INV-001").Msg("venta registrada")
	comp.Debug().Msg("no debe aparecer")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "pos", entry["service"])
	assert.Equal(t, "ventas", entry["component"])
	assert.Equal(t, "INV-001", entry["invoice_number"])
}
