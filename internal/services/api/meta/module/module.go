// Package module mounts the meta endpoints
package module

import (
	"time"

	modkit "github.com/open-sensor-research-platform/osrp/internal/modkit"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/httpkit"

	metahttp "github.com/open-sensor-research-platform/osrp/internal/services/api/meta/http"
)

// Module is the meta API module
type Module struct{ b modkit.Built }

// New builds the module; modkit.WithPorts carries the loaded plan for /meta/plan
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...)

	started := time.Now()
	extra := b.Register
	b.Register = func(r httpkit.Router) {
		metahttp.Register(r, metahttp.Deps{
			ServiceName: "osrp-api",
			StartedAt:   started,
			PG:          deps.PG,
			CH:          deps.CH,
			Plan:        b.Ports,
		})
		if extra != nil {
			extra(r)
		}
	}
	return &Module{b: b}
}

// MountRoutes implements modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) { m.b.Mount(r) }

// Name implements modkit.Module
func (m *Module) Name() string { return m.b.Name }

// Ports implements modkit.Module
func (m *Module) Ports() any { return nil }
