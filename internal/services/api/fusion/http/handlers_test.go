package http_test

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/align"
	"github.com/open-sensor-research-platform/osrp/internal/core/segment"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
	fusionhttp "github.com/open-sensor-research-platform/osrp/internal/services/api/fusion/http"
	fusiondom "github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
	streamsdom "github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"

	"github.com/go-chi/chi/v5"
)

type fakeFusion struct {
	sessions fusiondom.SessionsRequest
	aligned  fusiondom.AlignRequest
	features fusiondom.FeaturesRequest
	summary  struct {
		participant string
		day         time.Time
	}
	err error
}

func (f *fakeFusion) Sessions(_ context.Context, req fusiondom.SessionsRequest) ([]segment.Session, error) {
	f.sessions = req
	return []segment.Session{{Start: req.Start, End: req.Start.Add(time.Minute), DominantApp: "Maps", Events: 2}}, f.err
}

func (f *fakeFusion) Aligned(_ context.Context, req fusiondom.AlignRequest) (align.Frame, error) {
	f.aligned = req
	return align.Frame{
		Freq:    time.Minute,
		Index:   []time.Time{req.Start, req.Start.Add(time.Minute)},
		Columns: []string{"heart_rate_bpm"},
		Cols:    [][]timeseries.Value{{timeseries.Some(70), timeseries.None()}},
	}, f.err
}

func (f *fakeFusion) Features(_ context.Context, req fusiondom.FeaturesRequest) ([]window.FeatureWindow, error) {
	f.features = req
	return []window.FeatureWindow{{Participant: req.Participant, Start: req.Start, End: req.End}}, f.err
}

func (f *fakeFusion) Run(context.Context, fusiondom.RunRequest) (fusiondom.Run, error) {
	return fusiondom.Run{}, nil
}

func (f *fakeFusion) Nightly(context.Context, time.Time) (fusiondom.Run, error) {
	return fusiondom.Run{}, nil
}

func (f *fakeFusion) DailySummary(_ context.Context, p string, day time.Time) (fusiondom.DailySummary, error) {
	f.summary.participant, f.summary.day = p, day
	return fusiondom.DailySummary{Participant: p, Day: day}, f.err
}

func (f *fakeFusion) Participants(context.Context) ([]streamsdom.Participant, error) {
	return []streamsdom.Participant{{ID: "P001"}, {ID: "P002"}}, f.err
}

func newServer(t *testing.T, f *fakeFusion, loc *time.Location) *httptest.Server {
	t.Helper()
	m := chi.NewRouter()
	fusionhttp.Register(phttp.AdaptChi(m), fusionhttp.Deps{Fusion: f, Location: loc})
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Code       perr.ErrorCode  `json:"code"`
	Error      string          `json:"error"`
	Data       json.RawMessage `json:"data"`
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, envelope) {
	t.Helper()
	req, err := stdhttp.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res.StatusCode, env
}

const span = `"participant":"P001","start":"2025-06-02T08:00:00Z","end":"2025-06-02T10:00:00Z"`

func TestSessions_BindsGap(t *testing.T) {
	f := &fakeFusion{}
	srv := newServer(t, f, nil)

	code, env := do(t, srv, stdhttp.MethodPost, "/sessions", `{`+span+`,"gap":"90s"}`)
	if code != stdhttp.StatusOK {
		t.Fatalf("status %d: %s", code, env.Error)
	}
	if f.sessions.Gap == nil || *f.sessions.Gap != 90*time.Second {
		t.Fatalf("gap not bound: %+v", f.sessions.Gap)
	}
	if f.sessions.Participant != "P001" {
		t.Fatalf("participant %q", f.sessions.Participant)
	}
	var out []segment.Session
	if err := json.Unmarshal(env.Data, &out); err != nil || len(out) != 1 || out[0].DominantApp != "Maps" {
		t.Fatalf("data %s (%v)", env.Data, err)
	}
}

func TestSessions_NoGapLeavesPlanDefault(t *testing.T) {
	f := &fakeFusion{}
	srv := newServer(t, f, nil)
	if code, env := do(t, srv, stdhttp.MethodPost, "/sessions", `{`+span+`}`); code != stdhttp.StatusOK {
		t.Fatalf("status %d: %s", code, env.Error)
	}
	if f.sessions.Gap != nil {
		t.Fatalf("gap should be nil, got %v", *f.sessions.Gap)
	}
}

func TestPost_PaddedDurations(t *testing.T) {
	f := &fakeFusion{}
	srv := newServer(t, f, nil)

	for _, tc := range []struct{ path, body string }{
		{"/sessions", `{` + span + `,"gap":" 5m "}`},
		{"/aligned", `{` + span + `,"freq":" 2m"}`},
		{"/features", `{` + span + `,"window":"30m "}`},
	} {
		if code, env := do(t, srv, stdhttp.MethodPost, tc.path, tc.body); code != stdhttp.StatusOK {
			t.Fatalf("%s: status %d: %s", tc.path, code, env.Error)
		}
	}
	if f.sessions.Gap == nil || *f.sessions.Gap != 5*time.Minute {
		t.Fatalf("gap = %v", f.sessions.Gap)
	}
	if f.aligned.Freq != 2*time.Minute {
		t.Fatalf("freq = %s", f.aligned.Freq)
	}
	if f.features.Window != 30*time.Minute {
		t.Fatalf("window = %s", f.features.Window)
	}
}

func TestPost_ValidationFailures(t *testing.T) {
	cases := []struct {
		name, path, body string
	}{
		{"missing participant", "/sessions", `{"start":"2025-06-02T08:00:00Z","end":"2025-06-02T10:00:00Z"}`},
		{"inverted range", "/features", `{"participant":"P001","start":"2025-06-02T10:00:00Z","end":"2025-06-02T08:00:00Z"}`},
		{"bad gap", "/sessions", `{` + span + `,"gap":"soon"}`},
		{"negative freq", "/aligned", `{` + span + `,"freq":"-1m"}`},
		{"unknown fill", "/aligned", `{` + span + `,"fill":"mean"}`},
		{"duplicate streams", "/aligned", `{` + span + `,"streams":["steps","steps"]}`},
		{"unknown field", "/features", `{` + span + `,"size":"1h"}`},
	}
	srv := newServer(t, &fakeFusion{}, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := do(t, srv, stdhttp.MethodPost, tc.path, tc.body)
			if code != stdhttp.StatusBadRequest {
				t.Fatalf("status %d want 400 (%s)", code, env.Error)
			}
			if env.Code != perr.ErrorCodeValidation && env.Code != perr.ErrorCodeJSON {
				t.Fatalf("code %v", env.Code)
			}
		})
	}
}

func TestAligned_TransposesFrame(t *testing.T) {
	f := &fakeFusion{}
	srv := newServer(t, f, nil)

	code, env := do(t, srv, stdhttp.MethodPost, "/aligned", `{`+span+`,"streams":["heart_rate"],"freq":"1m","fill":"none"}`)
	if code != stdhttp.StatusOK {
		t.Fatalf("status %d: %s", code, env.Error)
	}
	if f.aligned.Freq != time.Minute || f.aligned.Fill != "none" || len(f.aligned.Streams) != 1 {
		t.Fatalf("request %+v", f.aligned)
	}
	var out struct {
		Freq    string       `json:"freq"`
		Columns []string     `json:"columns"`
		Rows    [][]*float64 `json:"rows"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Freq != "1m0s" || len(out.Rows) != 2 || out.Columns[0] != "heart_rate_bpm" {
		t.Fatalf("frame %+v", out)
	}
	if out.Rows[0][0] == nil || *out.Rows[0][0] != 70 || out.Rows[1][0] != nil {
		t.Fatalf("rows %s", env.Data)
	}
}

func TestFeatures_Window(t *testing.T) {
	f := &fakeFusion{}
	srv := newServer(t, f, nil)
	if code, env := do(t, srv, stdhttp.MethodPost, "/features", `{`+span+`,"window":"30m"}`); code != stdhttp.StatusOK {
		t.Fatalf("status %d: %s", code, env.Error)
	}
	if f.features.Window != 30*time.Minute {
		t.Fatalf("window %v", f.features.Window)
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	f := &fakeFusion{err: perr.InvalidArgf("stream %q is not a screen stream", "steps")}
	srv := newServer(t, f, nil)
	code, env := do(t, srv, stdhttp.MethodPost, "/sessions", `{`+span+`,"stream":"steps"}`)
	if code != stdhttp.StatusUnprocessableEntity || env.Code != perr.ErrorCodeInvalidArgument {
		t.Fatalf("status %d code %v", code, env.Code)
	}
}

func TestParticipants(t *testing.T) {
	srv := newServer(t, &fakeFusion{}, nil)
	code, env := do(t, srv, stdhttp.MethodGet, "/participants", "")
	if code != stdhttp.StatusOK {
		t.Fatalf("status %d", code)
	}
	var out []streamsdom.Participant
	if err := json.Unmarshal(env.Data, &out); err != nil || len(out) != 2 {
		t.Fatalf("data %s (%v)", env.Data, err)
	}
}

func TestSummary_ParsesDayInPlanZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	f := &fakeFusion{}
	srv := newServer(t, f, loc)

	code, env := do(t, srv, stdhttp.MethodGet, "/summary?participant=P001&day=2025-06-02", "")
	if code != stdhttp.StatusOK {
		t.Fatalf("status %d: %s", code, env.Error)
	}
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, loc)
	if f.summary.participant != "P001" || !f.summary.day.Equal(want) {
		t.Fatalf("summary call %+v", f.summary)
	}
}

func TestSummary_RejectsBadQuery(t *testing.T) {
	srv := newServer(t, &fakeFusion{}, nil)
	for _, q := range []string{"?day=2025-06-02", "?participant=P001", "?participant=P001&day=06/02/2025"} {
		code, env := do(t, srv, stdhttp.MethodGet, "/summary"+q, "")
		if code != stdhttp.StatusBadRequest || env.Code != perr.ErrorCodeValidation {
			t.Fatalf("%s: status %d code %v", q, code, env.Code)
		}
	}
}
