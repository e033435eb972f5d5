package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kariuki00743/safipay/api/responses"
	"github.com/kariuki00743/safipay/pkg/config"
)

const healthPingTimeout = 2 * time.Second

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse reports liveness plus dependency and config presence.
type HealthResponse struct {
	Status          string `json:"status"`
	Env             string `json:"env"`
	MpesaEnv        string `json:"mpesa_env"`
	MpesaConfigured bool   `json:"mpesa_configured"`
	Database        string `json:"database"`
	Redis           string `json:"redis"`
}

// Health always answers 200; a failed dependency shows up as "degraded".
func Health(cfg *config.Config, db Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:          "ok",
			Env:             cfg.App.Env,
			MpesaEnv:        cfg.MPesa.Env,
			MpesaConfigured: mpesaConfigured(cfg.MPesa),
			Database:        probe(r.Context(), db),
			Redis:           probe(r.Context(), cache),
		}
		if resp.Database != "ok" || resp.Redis != "ok" || !resp.MpesaConfigured {
			resp.Status = "degraded"
		}
		responses.WriteSuccess(w, resp)
	}
}

func mpesaConfigured(cfg config.MPesaConfig) bool {
	for _, v := range []string{cfg.ConsumerKey, cfg.ConsumerSecret, cfg.Shortcode, cfg.Passkey, cfg.CallbackURL} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "unconfigured"
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}
