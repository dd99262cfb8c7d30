// Package module wires the stream reader from deps
package module

import (
	"os"

	"github.com/open-sensor-research-platform/osrp/internal/modkit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/repo"
	"github.com/open-sensor-research-platform/osrp/internal/services/streams/service"
)

// Ports defines the streams module ports
type Ports struct {
	Reader domain.Ports
	// Cached fronts Reader for request paths; batch runs use Reader directly
	Cached *service.Cached
}

// Module implements the streams module; it mounts no routes
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New builds the reader over the stores in deps, or over a fixture file when
// CORE_STREAMS_FIXTURE is set
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	binder := repo.NewHybrid(deps.CH)
	if opts.Fixture != "" {
		f, err := os.Open(opts.Fixture)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "open fixture %s", opts.Fixture)
		}
		defer f.Close()
		mem, err := repo.LoadJSONL(f)
		if err != nil {
			return nil, err
		}
		binder = mem.Binder()
		deps.Log.Info().Str("fixture", opts.Fixture).Msg("streams: reading from fixture")
	}

	svc := service.New(deps.PG, binder, service.Config{
		MaxRetries: opts.MaxRetries,
		RetryBase:  opts.RetryBase,
		Timeout:    opts.Timeout,
		Sources:    opts.sources(),
		SurveyID:   opts.SurveyID,
	}, deps.Metrics)

	return &Module{deps: deps, ports: Ports{
		Reader: svc,
		Cached: service.NewCached(svc, opts.CacheTTL, deps.Metrics),
	}}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "streams" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Reader returns the uncached reader
func (m *Module) Reader() domain.Ports { return m.ports.Reader }

// MountRoutes is a no-op as the reader has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}

var _ modkit.Module = (*Module)(nil)
