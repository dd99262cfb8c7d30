package middleware

import (
	"net/http"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	pnet "github.com/open-sensor-research-platform/osrp/internal/platform/net"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLogOptions configures AccessLog
type AccessLogOptions struct {
	// Slow logs requests at warn once they take at least this long; 0 disables
	Slow time.Duration

	// Log overrides the request scoped logger
	Log *logger.Logger
}

// AccessLog writes one line per request with status, bytes and latency
// Run it inside Scope so the line carries request id and participant
func AccessLog(opt AccessLogOptions) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			log := opt.Log
			if log == nil {
				log = logger.C(r.Context())
			}
			evt := log.Info()
			if opt.Slow > 0 && elapsed >= opt.Slow {
				evt = log.Warn().Bool("slow", true)
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if p := pnet.Participant(r.Context()); p != "" && opt.Log != nil {
				evt = evt.Str("participant", p)
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", elapsed).
				Msg("request")
		})
	}
}
