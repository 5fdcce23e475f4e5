package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestLoggerCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "storefront", Output: &buf})

	ctx := logg.WithOrder(context.Background(), "JF123")
	ctx = logg.WithFields(ctx, map[string]any{"email": "ana@example.com"})
	logg.Error(ctx, "checkout.side_effect.failed", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "storefront", line["service"])
	assert.Equal(t, "JF123", line["order_number"])
	assert.Equal(t, "ana@example.com", line["email"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "error", line["level"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "storefront", Level: zerolog.WarnLevel, Output: &buf})

	logg.Info(context.Background(), "quiet")
	assert.Zero(t, buf.Len())

	logg.Warn(context.Background(), "loud")
	assert.NotZero(t, buf.Len())
}
