package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariuki00743/safipay/pkg/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		MPesa: config.MPesaConfig{
			Env:            config.MPesaEnvSandbox,
			ConsumerKey:    "key",
			ConsumerSecret: "secret",
			Shortcode:      "174379",
			Passkey:        "passkey",
			CallbackURL:    "https://example.com/api/callback",
		},
	}
}

func getHealth(t *testing.T, handler http.HandlerFunc) HealthResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Success bool           `json:"success"`
		Data    HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestHealthReportsDependencies(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	resp := getHealth(t, Health(healthConfig(), ok, ok))

	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.MpesaConfigured)
	assert.Equal(t, "sandbox", resp.MpesaEnv)
	assert.Equal(t, "ok", resp.Database)
	assert.Equal(t, "ok", resp.Redis)
}

func TestHealthDegradesWithoutFailing(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := getHealth(t, Health(healthConfig(), ok, down))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Redis)

	cfg := healthConfig()
	cfg.MPesa.Passkey = " "
	resp = getHealth(t, Health(cfg, ok, nil))
	assert.False(t, resp.MpesaConfigured)
	assert.Equal(t, "unconfigured", resp.Redis)
}
