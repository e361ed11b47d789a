package metrics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// StartServer serves /health and /metrics in the background when
// ENABLE_HTTP_MONITORING=true. Long-running deployments poll these; the
// CLI path ignores them.
func StartServer(log *slog.Logger) {
	if os.Getenv("ENABLE_HTTP_MONITORING") != "true" {
		return
	}

	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := Global.GetStats()
		w.Header().Set("Content-Type", "application/json")
		if stats["is_healthy"] != true {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   statusWord(stats["is_healthy"] == true),
			"last_run": stats["last_run_time"],
			"error":    stats["last_error"],
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Global.GetStats())
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("monitoring server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("monitoring server stopped", "error", err)
		}
	}()
}

func statusWord(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}
