// Package middleware wraps the chi and go-chi/cors middlewares the API stack uses,
// plus the in house scope, recover and access log handlers
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Func is the standard middleware shape
type Func = func(http.Handler) http.Handler

// RequestID attaches or propagates X-Request-ID
func RequestID() Func { return chimw.RequestID }

// RealIP trusts X-Forwarded-For and X-Real-IP for RemoteAddr
func RealIP() Func { return chimw.RealIP }

// NoCache disables client and proxy caching; fused windows change per run
func NoCache() Func { return chimw.NoCache }

// Compress gzips or deflates responses at level
func Compress(level int) Func {
	c := chimw.NewCompressor(level, "application/json", "text/csv", "application/x-ndjson")
	return c.Handler
}

// Slashes redirects GETs with a trailing slash and strips it for everything else
func Slashes() Func {
	return func(next http.Handler) http.Handler {
		redirect, strip := chimw.RedirectSlashes(next), chimw.StripSlashes(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				redirect.ServeHTTP(w, r)
				return
			}
			strip.ServeHTTP(w, r)
		})
	}
}

// Timeout cancels the request context after d and answers 504 if nothing was written
func Timeout(d time.Duration) Func { return chimw.Timeout(d) }

// CORS allows the given origins, or any origin when none are listed
// The participant and request id headers are always allowed
func CORS(origins ...string) Func {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return chicors.Handler(chicors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", ParticipantHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})
}
