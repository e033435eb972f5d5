package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/kariuki00743/safipay/pkg/config"
)

// CORS admits the dashboard origin plus any extra configured origins. The API
// only serves GET and POST.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(app),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler
}

func allowedOrigins(app config.AppConfig) []string {
	seen := map[string]bool{}
	var out []string
	for _, origin := range append([]string{app.FrontendURL}, app.CORSOrigins...) {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		out = append(out, origin)
	}
	return out
}
