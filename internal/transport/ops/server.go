// Package ops serves the operational HTTP surface: health and Prometheus
// metrics. It is optional and off by default — the primary surface is MCP.
package ops

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/version"
)

// CacheStats reports cache entry counts for the health payload.
type CacheStats interface {
	Stats() (total, expired int)
}

// Handler builds the ops router: /health, /metrics, bearer-key auth for
// everything else that may be mounted later.
func Handler(apiKeys []string, cache CacheStats, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(bearerAuth(apiKeys))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		payload := map[string]any{
			"status":  "ok",
			"version": version.Version,
		}
		if cache != nil {
			total, expired := cache.Stats()
			payload["cache_entries"] = total
			payload["cache_expired"] = expired
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Warn("Failed to write health response", zap.Error(err))
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// bearerAuth validates Bearer tokens against the configured API keys.
// An empty key list disables authentication (pass-through).
func bearerAuth(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeUnauthorized(w, "authorization header must use Bearer scheme")
				return
			}
			if _, ok := validKeys[auth[len(bearerPrefix):]]; !ok {
				writeUnauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "unauthorized",
		"message": msg,
	})
}
