// Package module wires the fusion service from deps and the stream reader
package module

import (
	"github.com/open-sensor-research-platform/osrp/internal/modkit"
	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/guardrails"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/plan"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/service"
)

// Ports defines the fusion module ports
type Ports struct {
	Fusion domain.Ports
	Plan   plan.Plan
}

// Module implements the fusion module; routes live in api/fusion
type Module struct {
	deps  modkit.Deps
	svc   *service.Service
	ports Ports
}

// New loads the plan and builds the service over src
// sink may be nil when nothing persists nightly runs
func New(deps modkit.Deps, src domain.SourcePort, sink domain.SinkPort) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	p, err := LoadPlan(deps.Cfg)
	if err != nil {
		return nil, err
	}

	svc := service.New(src, p, service.Config{
		Workers:  opts.Workers,
		Timeouts: guardrails.Timeouts{Unit: opts.UnitTimeout, Read: opts.ReadTimeout},
	}, deps.Metrics).WithSink(sink)

	if opts.EnableLeases && deps.PG != nil {
		svc.WithLease(guardrails.MakeDayLease(deps.PG, "fusion", opts.LeaseTTL))
	}

	deps.Log.Info().Str("plan", p.Name).Int("streams", len(p.Streams)).Int("workers", opts.Workers).Msg("fusion: module ready")
	return &Module{deps: deps, svc: svc, ports: Ports{Fusion: svc, Plan: p}}, nil
}

// LoadPlan reads the plan named by CORE_FUSION_PLAN, or the default plan
func LoadPlan(cfg config.Conf) (plan.Plan, error) {
	path := FromConfig(cfg).PlanPath
	if path == "" {
		return plan.Default(), nil
	}
	return plan.Load(path)
}

// Name returns the module name
func (m *Module) Name() string { return "fusion" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Service returns the concrete service for commands
func (m *Module) Service() *service.Service { return m.svc }

// MountRoutes is a no-op; the HTTP surface is the api fusion module
func (m *Module) MountRoutes(_ phttp.Router) {}

var _ modkit.Module = (*Module)(nil)
