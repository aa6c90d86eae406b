package api

import (
	"log/slog"
	"net/http"
	"time"
)

// RequestLogger logs every request with its duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// userID returns the acting user's ID. Authentication itself is handled
// upstream; the engine only records who asked.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
