// Package module wires the export sink from deps
package module

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/modkit"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/domain"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/repo"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/service"
)

// Options holds sink configuration
type Options struct {
	Format string
	Dir    string
	Prefix string

	// StatementTimeout bounds each statement of a pg window write
	StatementTimeout time.Duration
}

// FromConfig reads the export options from config with CORE_EXPORT_ prefix
// def supplies the fallbacks, usually the study plan's export block
func FromConfig(cfg config.Conf, def Options) Options {
	if def.Format == "" {
		def.Format = "csv"
	}
	if def.Dir == "" {
		def.Dir = "."
	}
	ec := cfg.Prefix("CORE_EXPORT_")
	return Options{
		Format: ec.MayEnum("FORMAT", def.Format, "csv", "xlsx", "jsonl", "pg"),
		Dir:    ec.MayString("DIR", def.Dir),
		Prefix: ec.MayString("PREFIX", def.Prefix),

		StatementTimeout: ec.MayDuration("STATEMENT_TIMEOUT", 30*time.Second),
	}
}

// Ports defines the export module ports
type Ports struct {
	Sink domain.SinkPort
}

// Module implements the export module
type Module struct {
	svc   *service.Service
	ports Ports
}

// New builds the sink; opts usually come from FromConfig with plan overrides applied
func New(deps modkit.Deps, opts Options) (*Module, error) {
	f, err := service.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	db := repokit.WithTxSetup(deps.PG, repokit.StatementTimeout(opts.StatementTimeout))
	svc := service.New(db, repo.NewPG(), service.Config{Format: f, Dir: opts.Dir, Prefix: opts.Prefix})
	return &Module{svc: svc, ports: Ports{Sink: svc}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "export" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Service returns the concrete service for commands that write files directly
func (m *Module) Service() *service.Service { return m.svc }

// MountRoutes is a no-op as export has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}

var _ modkit.Module = (*Module)(nil)
