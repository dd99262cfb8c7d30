package middleware

import (
	"net/http"
	"runtime/debug"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	pnet "github.com/open-sensor-research-platform/osrp/internal/platform/net"
	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
)

// Recover turns a handler panic into a 500 envelope and logs the stack
// http.ErrAbortHandler is re-raised so the server can drop the connection
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			if id := pnet.RequestID(r.Context()); id != "" {
				w.Header().Set("X-Request-ID", id)
			}
			phttp.Fail(w, r, perr.PanicErrf("panic recovered"))
		}()
		next.ServeHTTP(w, r)
	})
}
