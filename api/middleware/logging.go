package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Logging emits one line per request once the response is written. 5xx
// responses log at warn, health probes at debug.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logg.WithFields(r.Context(), logger.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			rec := &recordingWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			fields := logger.Fields{
				"status":      rec.Status(),
				"bytes":       rec.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			ctx = logg.WithFields(ctx, fields)

			switch {
			case rec.Status() >= http.StatusInternalServerError:
				logg.Warn(ctx, "request.complete")
			case isProbe(r.URL.Path):
				logg.Debug(ctx, "request.complete")
			default:
				logg.Info(ctx, "request.complete")
			}
		})
	}
}

func isProbe(path string) bool {
	switch path {
	case "/health/live", "/health/ready", "/api/public/ping", "/metrics":
		return true
	}
	return false
}
