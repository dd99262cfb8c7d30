package module

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/guardrails"
)

// Options holds fusion batch configuration
type Options struct {
	// PlanPath is the study plan YAML; empty uses the default plan
	PlanPath string

	Workers      int
	UnitTimeout  time.Duration
	ReadTimeout  time.Duration
	EnableLeases bool
	// LeaseTTL is how long a claimed day stays held without finishing
	LeaseTTL time.Duration
}

// FromConfig reads the fusion options from config with CORE_FUSION_ prefix
func FromConfig(cfg config.Conf) Options {
	fc := cfg.Prefix("CORE_FUSION_")
	return Options{
		PlanPath:     fc.MayString("PLAN", ""),
		Workers:      fc.MayInt("WORKERS", 4),
		UnitTimeout:  fc.MayDuration("UNIT_TIMEOUT", 5*time.Minute),
		ReadTimeout:  fc.MayDuration("READ_TIMEOUT", time.Minute),
		EnableLeases: fc.MayBool("LEASES", true),
		LeaseTTL:     fc.MayDuration("LEASE_TTL", guardrails.DefaultLeaseTTL),
	}
}
