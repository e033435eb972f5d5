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

func TestLoggerCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithTransactionID(ctx, "tx-1")
	logg.Info(ctx, "transition.applied")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "tx-1", entry["transaction_id"])
	assert.Equal(t, "transition.applied", entry["message"])
}

func TestLoggerErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.Error(context.Background(), "boom", errors.New("bad"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bad", entry["error"])
	assert.NotEmpty(t, entry["stack"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNilLoggerDiscards(t *testing.T) {
	var logg *Logger
	ctx := logg.WithTransactionID(context.Background(), "tx-1")
	assert.NotPanics(t, func() {
		logg.Info(ctx, "ignored")
		logg.Warn(ctx, "ignored")
		logg.Error(ctx, "ignored", errors.New("bad"))
	})
}
