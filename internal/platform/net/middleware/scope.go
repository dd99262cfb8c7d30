package middleware

import (
	"net/http"
	"strings"

	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	pnet "github.com/open-sensor-research-platform/osrp/internal/platform/net"
)

// ParticipantHeader carries the participant a request is about
const ParticipantHeader = "X-Participant-ID"

// Scope stamps the request id and participant on the context so the access log
// and handler logs carry them. The participant comes from the header, else the
// participant query parameter
func Scope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := pnet.RequestID(ctx)

			p := strings.TrimSpace(r.Header.Get(ParticipantHeader))
			if p == "" {
				p = strings.TrimSpace(r.URL.Query().Get("participant"))
			}

			ctx = pnet.WithRequest(ctx, reqID, p)
			ctx = logger.WithRequest(ctx, reqID)
			ctx = logger.WithRun(ctx, "", p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
