// Package httpkit is what API modules mount routes with; they never see chi or
// the envelope writer directly
package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
	"github.com/open-sensor-research-platform/osrp/internal/platform/net/middleware"
)

// Router re-exports the platform router seam
type Router = phttp.Router

// Get mounts a handler that reads its input from the query string
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.QueryHandler(h))
}

// PostJSON mounts a handler whose body is decoded and validated into T
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}

// MountAPIV1 scopes mount under /api/v1 behind mw
func MountAPIV1(r Router, mw []middleware.Func, mount func(Router)) {
	r.Route("/api/v1", func(api Router) {
		api.Use(mw...)
		mount(api)
	})
}

// CommonStack is the middleware every versioned route runs behind, outermost first
// origins feeds CORS; none means any origin
func CommonStack(origins ...string) []middleware.Func {
	return []middleware.Func{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.Scope(),
		middleware.Recover,
		middleware.AccessLog(middleware.AccessLogOptions{Slow: 2 * time.Second}),
		middleware.NoCache(),
		middleware.CORS(origins...),
		middleware.Compress(flate.BestSpeed),
		middleware.Slashes(),
		middleware.Timeout(30 * time.Second),
	}
}
