// Package plan loads and validates the study plan that drives fusion runs
package plan

import (
	"bytes"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/align"
	"github.com/open-sensor-research-platform/osrp/internal/core/segment"
	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/net/http/bind"
	ptime "github.com/open-sensor-research-platform/osrp/internal/platform/time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Plan is one study's fusion configuration
type Plan struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Timezone string `yaml:"timezone" json:"timezone" validate:"omitempty,timezone"`

	// Streams maps feature column prefixes to stream kinds; ema belongs in Label
	Streams []Stream `yaml:"streams" json:"streams" validate:"required,min=1,unique=Name,dive"`

	Freq   time.Duration `yaml:"freq" json:"freq" validate:"gt=0"`
	Fill   string        `yaml:"fill" json:"fill" validate:"omitempty,fill_policy"`
	Window time.Duration `yaml:"window" json:"window" validate:"gt=0"`
	Gap    time.Duration `yaml:"gap" json:"gap" validate:"gte=0"`

	// Label is optional; without it windows carry no label
	Label *Label `yaml:"label" json:"label"`

	Participants Participants `yaml:"participants" json:"participants"`

	// MinLabeled marks a participant-day insufficient below this many labeled windows
	MinLabeled int `yaml:"min_labeled" json:"min_labeled" validate:"gte=0"`

	Schedule string `yaml:"schedule" json:"schedule" validate:"omitempty,cron"`
	Export   Export `yaml:"export" json:"export"`
}

// Stream is one entry of the stream catalog
type Stream struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Kind string `yaml:"kind" json:"kind" validate:"required,stream_kind"`
}

// Label configures the EMA label rule
type Label struct {
	Cut       float64 `yaml:"cut" json:"cut"`
	Inclusive bool    `yaml:"inclusive" json:"inclusive"`
	SurveyID  string  `yaml:"survey_id" json:"survey_id"`
}

// Participants filters the roster
type Participants struct {
	Group   string   `yaml:"group" json:"group"`
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// Export names the sink for run output
type Export struct {
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=csv xlsx jsonl pg"`
	Dir    string `yaml:"dir" json:"dir"`
}

// Default is the plan used when none is given: every wearable stream at one
// minute, hourly windows, labels above 3
func Default() Plan {
	return Plan{
		Name: "default",
		Streams: []Stream{
			{Name: "screen", Kind: string(streams.KindScreen)},
			{Name: "accelerometer", Kind: string(streams.KindAccelerometer)},
			{Name: "heart_rate", Kind: string(streams.KindHeartRate)},
			{Name: "steps", Kind: string(streams.KindSteps)},
			{Name: "location", Kind: string(streams.KindLocation)},
		},
		Freq:   time.Minute,
		Fill:   align.FillForward.String(),
		Window: time.Hour,
		Gap:    segment.DefaultGap,
		Label:  &Label{Cut: 3},
		Export: Export{Format: "csv", Dir: "."},
	}
}

// Load reads and validates a YAML plan file
func Load(path string) (Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, perr.Wrapf(err, perr.ErrorCodeNotFound, "read plan %s", path)
	}
	return Parse(bytes.NewReader(b))
}

// Parse decodes YAML into a Plan over the defaults and validates it
// unknown keys are rejected
func Parse(r io.Reader) (Plan, error) {
	p := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return Plan{}, perr.Wrap(err, perr.ErrorCodeValidation, "decode plan")
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate checks struct tags and the cross-field rules
func (p Plan) Validate() error {
	if err := validator().Validator.Struct(p); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		return perr.WithField(perr.Validationf("plan: %s", msg), field)
	}
	for _, s := range p.Streams {
		if streams.Kind(s.Kind) == streams.KindEMA {
			return perr.WithField(perr.Validationf("plan: ema is read through label, not streams"), "streams")
		}
	}
	for _, id := range p.Participants.Include {
		if slices.Contains(p.Participants.Exclude, id) {
			return perr.WithField(perr.Validationf("plan: participant %s is both included and excluded", id), "participants")
		}
	}
	return nil
}

// Catalog returns the stream name to kind map
func (p Plan) Catalog() map[string]streams.Kind {
	out := make(map[string]streams.Kind, len(p.Streams))
	for _, s := range p.Streams {
		out[s.Name] = streams.Kind(s.Kind)
	}
	return out
}

// Names returns the stream names in sorted order
func (p Plan) Names() []string {
	out := make([]string, 0, len(p.Streams))
	for _, s := range p.Streams {
		out = append(out, s.Name)
	}
	sort.Strings(out)
	return out
}

// FillPolicy returns the parsed fill policy
func (p Plan) FillPolicy() align.FillPolicy {
	f, _ := align.ParseFillPolicy(p.Fill)
	return f
}

// Rule returns the label rule, nil when no label is configured
func (p Plan) Rule() window.LabelRule {
	if p.Label == nil {
		return nil
	}
	return window.Threshold{Cut: p.Label.Cut, Inclusive: p.Label.Inclusive}.Rule()
}

// Location returns the study time zone, UTC when unset
func (p Plan) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Selects reports whether the roster filter keeps id
func (p Plan) Selects(id string) bool {
	if slices.Contains(p.Participants.Exclude, id) {
		return false
	}
	return len(p.Participants.Include) == 0 || slices.Contains(p.Participants.Include, id)
}

// Days returns local midnights covering [start, end) in the plan zone
func (p Plan) Days(start, end time.Time) []time.Time {
	return ptime.Days(start.In(p.Location()), end)
}

// Next returns the next scheduled run after t, false when no schedule is set
func (p Plan) Next(t time.Time) (time.Time, bool) {
	if p.Schedule == "" {
		return time.Time{}, false
	}
	sched, err := cronParser.Parse(p.Schedule)
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(t.In(p.Location())), true
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var registerOnce sync.Once

// validator returns the shared validator with the plan tags registered
func validator() *bind.ValidatorSvc {
	registerOnce.Do(func() {
		_ = bind.RegisterValidation("stream_kind", func(fl bind.FieldLevel) bool {
			_, err := streams.ParseKind(fl.Field().String())
			return err == nil
		})
		_ = bind.RegisterValidation("fill_policy", func(fl bind.FieldLevel) bool {
			_, err := align.ParseFillPolicy(fl.Field().String())
			return err == nil
		})
		_ = bind.RegisterValidation("cron", func(fl bind.FieldLevel) bool {
			_, err := cronParser.Parse(strings.TrimSpace(fl.Field().String()))
			return err == nil
		})
		bind.RegisterMessage("stream_kind", "{0} must be one of "+kindList())
		bind.RegisterMessage("fill_policy", "{0} must be ffill, bfill, interpolate or none")
		bind.RegisterMessage("cron", "{0} must be a five-field cron expression")
	})
	return bind.Get()
}

func kindList() string {
	ks := streams.Kinds()
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return strings.Join(out, ", ")
}
