package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/align"
	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/testkit"
)

const pilot = `
name: pilot
timezone: America/Chicago
streams:
  - {name: phone, kind: screen}
  - {name: hr, kind: heart_rate}
freq: 5m
fill: interpolate
window: 30m
label:
  cut: 4
  inclusive: true
participants:
  group: wave1
  exclude: [P009]
min_labeled: 2
schedule: "15 2 * * *"
export: {format: xlsx, dir: out}
`

func TestParse_Pilot(t *testing.T) {
	p, err := Parse(strings.NewReader(pilot))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "pilot" || p.Freq != 5*time.Minute || p.Window != 30*time.Minute {
		t.Fatalf("plan = %+v", p)
	}
	if p.FillPolicy() != align.FillInterpolate {
		t.Fatalf("fill = %v", p.FillPolicy())
	}
	if got := p.Catalog(); got["phone"] != streams.KindScreen || got["hr"] != streams.KindHeartRate || len(got) != 2 {
		t.Fatalf("catalog = %v", got)
	}
	if got := p.Names(); got[0] != "hr" || got[1] != "phone" {
		t.Fatalf("names = %v", got)
	}
	// gap was not set and keeps the default
	if p.Gap != 60*time.Second {
		t.Fatalf("gap = %v", p.Gap)
	}
	rule := p.Rule()
	if rule(4) != window.LabelHigh || rule(3.9) != window.LabelLow {
		t.Fatalf("inclusive rule at the cut is wrong")
	}
	if p.Location().String() != "America/Chicago" {
		t.Fatalf("loc = %v", p.Location())
	}
	if p.MinLabeled != 2 || p.Export.Format != "xlsx" {
		t.Fatalf("plan = %+v", p)
	}
}

func TestParse_Defaults(t *testing.T) {
	p, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty input should yield the default plan: %v", err)
	}
	if p.Name != "default" || len(p.Streams) != 5 || p.FillPolicy() != align.FillForward {
		t.Fatalf("default = %+v", p)
	}
	if p.Location() != time.UTC {
		t.Fatalf("default zone should be UTC")
	}
}

func TestParse_NoLabel(t *testing.T) {
	p, err := Parse(strings.NewReader("label: null\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Rule() != nil {
		t.Fatalf("label: null should disable the rule")
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name, doc, want string
	}{
		{"unknown key", "colour: red\n", "decode plan"},
		{"bad kind", "streams: [{name: x, kind: eeg}]\n", "kind must be one of"},
		{"ema as stream", "streams: [{name: mood, kind: ema}]\n", "ema is read through label"},
		{"dup name", "streams: [{name: x, kind: steps}, {name: x, kind: screen}]\n", "streams"},
		{"bad fill", "fill: cubic\n", "fill must be"},
		{"zero freq", "freq: 0s\n", "freq"},
		{"negative gap", "gap: -1s\n", "gap"},
		{"bad cron", "schedule: every night\n", "schedule must be a five-field cron expression"},
		{"bad zone", "timezone: Mars/Olympus\n", "timezone"},
		{"bad export", "export: {format: parquet}\n", "format"},
		{"overlap", "participants: {include: [P1], exclude: [P1]}\n", "both included and excluded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.doc))
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
			}
			testkit.MustContain(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir() + "/nope.yaml")
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
}

func TestSelects(t *testing.T) {
	p := Plan{Participants: Participants{Exclude: []string{"P2"}}}
	if !p.Selects("P1") || p.Selects("P2") {
		t.Fatalf("exclude-only filter is wrong")
	}
	p.Participants.Include = []string{"P3"}
	if p.Selects("P1") || !p.Selects("P3") {
		t.Fatalf("include filter is wrong")
	}
}

func TestDays(t *testing.T) {
	p := Plan{Timezone: "America/Chicago"}
	loc := p.Location()
	start := time.Date(2024, 3, 9, 13, 0, 0, 0, loc)
	end := time.Date(2024, 3, 11, 0, 0, 0, 0, loc)
	days := p.Days(start, end)
	if len(days) != 2 {
		t.Fatalf("days = %v", days)
	}
	// DST starts on the 10th; the day still begins at local midnight
	if days[1].Hour() != 0 || days[1].Day() != 10 {
		t.Fatalf("day 2 = %v", days[1])
	}
	if got := p.Days(end, start); len(got) != 0 {
		t.Fatalf("inverted range = %v", got)
	}
}

func TestNext(t *testing.T) {
	p := Plan{Schedule: "15 2 * * *"}
	from := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	next, ok := p.Next(from)
	if !ok || !next.Equal(time.Date(2024, 5, 2, 2, 15, 0, 0, time.UTC)) {
		t.Fatalf("next = %v %v", next, ok)
	}
	if _, ok := (Plan{}).Next(from); ok {
		t.Fatalf("no schedule should report false")
	}
}
