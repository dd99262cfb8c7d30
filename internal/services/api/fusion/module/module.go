// Package module mounts the fusion query endpoints
package module

import (
	modkit "github.com/open-sensor-research-platform/osrp/internal/modkit"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/httpkit"
	fusionhttp "github.com/open-sensor-research-platform/osrp/internal/services/api/fusion/http"
	fusionmod "github.com/open-sensor-research-platform/osrp/internal/services/fusion/module"
)

// Module is the fusion API module
type Module struct{ b modkit.Built }

// New builds the module; pass the fusion ports with modkit.WithPorts
// Without them the prefix mounts but serves nothing
func New(_ modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("fusion-api"), modkit.WithPrefix("/fusion")}, opts...)...)

	ports, _ := b.Ports.(fusionmod.Ports)
	extra := b.Register
	b.Register = func(r httpkit.Router) {
		if ports.Fusion != nil {
			fusionhttp.Register(r, fusionhttp.Deps{Fusion: ports.Fusion, Location: ports.Plan.Location()})
		}
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

// Ports is nil; the fusion service module owns the ports
func (m *Module) Ports() any { return nil }
