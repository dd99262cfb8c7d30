package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	pnet "github.com/open-sensor-research-platform/osrp/internal/platform/net"
	"github.com/open-sensor-research-platform/osrp/internal/platform/net/middleware"
)

func TestScope_ParticipantFromHeaderThenQuery(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{"header wins", "/x?participant=Q1", "P001", "P001"},
		{"query fallback", "/x?participant=Q1", "", "Q1"},
		{"neither", "/x", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := middleware.Scope()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = pnet.Participant(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.header != "" {
				req.Header.Set(middleware.ParticipantHeader, tc.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("participant %q want %q", got, tc.want)
			}
		})
	}
}

func TestScope_KeepsRequestID(t *testing.T) {
	var got string
	h := middleware.RequestID()(middleware.Scope()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = pnet.RequestID(r.Context())
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if got == "" {
		t.Fatal("expected request id to survive")
	}
}
