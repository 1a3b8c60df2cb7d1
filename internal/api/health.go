package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiworld/gateway/internal/log"
)

// health is the liveness probe. 200 means the process is up.
func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness pings the database pool. Without a pool it reports ready so the
// probe still works in pool-less test setups.
func readiness(pool *pgxpool.Pool, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				logger.Error("readiness check failed", "error", err)
				http.Error(w, "database not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
}

// info serves the root endpoint with service identity.
func info(version string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"name":    "aiworld-gateway",
			"version": version,
			"status":  "ok",
		}, logger)
	}
}
