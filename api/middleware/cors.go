package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var localCORSOrigins = []string{
	"http://localhost:3000", // storefront dev
	"http://localhost:5173", // admin console dev
}

// CORS applies the storefront and admin console origin policy. Configured
// origins are added to the local dev ones; a bare "*" is ignored because
// credentials are allowed.
func CORS(configured ...string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: corsOrigins(configured),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", sessionHeader, "Idempotency-Key", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, idempotentReplayHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func corsOrigins(configured []string) []string {
	seen := make(map[string]struct{}, len(localCORSOrigins)+len(configured))
	out := make([]string, 0, len(localCORSOrigins)+len(configured))
	for _, raw := range append(append([]string{}, localCORSOrigins...), configured...) {
		origin := strings.TrimRight(strings.TrimSpace(raw), "/")
		if origin == "" || origin == "*" {
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		out = append(out, origin)
	}
	return out
}
