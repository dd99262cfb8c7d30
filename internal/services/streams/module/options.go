package module

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
)

// Options holds reader configuration
type Options struct {
	MaxRetries int
	RetryBase  time.Duration
	Timeout    time.Duration

	HeartRateSource string
	StepsSource     string
	SurveyID        string

	// Fixture switches the reader to a JSON Lines file instead of the stores
	Fixture string

	CacheTTL time.Duration
}

// FromConfig reads the reader options from config with CORE_STREAMS_ prefix
func FromConfig(cfg config.Conf) Options {
	sc := cfg.Prefix("CORE_STREAMS_")
	return Options{
		MaxRetries:      sc.MayInt("RETRIES", 3),
		RetryBase:       sc.MayDuration("RETRY_BASE", 200*time.Millisecond),
		Timeout:         sc.MayDuration("TIMEOUT", 30*time.Second),
		HeartRateSource: sc.MayString("HR_SOURCE", "polar_h10"),
		StepsSource:     sc.MayString("STEPS_SOURCE", "googlefit"),
		SurveyID:        sc.MayString("SURVEY_ID", ""),
		Fixture:         sc.MayString("FIXTURE", ""),
		CacheTTL:        sc.MayDuration("CACHE_TTL", 5*time.Minute),
	}
}

func (o Options) sources() map[streams.Kind]string {
	return map[streams.Kind]string{
		streams.KindHeartRate: o.HeartRateSource,
		streams.KindSteps:     o.StepsSource,
	}
}
