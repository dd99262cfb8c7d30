// Package engine composes the non-HTTP modules: the stream reader, the export
// sink and the fusion service over them
package engine

import (
	"github.com/open-sensor-research-platform/osrp/internal/modkit"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/module"

	exportmod "github.com/open-sensor-research-platform/osrp/internal/services/export/module"
	fusionmod "github.com/open-sensor-research-platform/osrp/internal/services/fusion/module"
	streamsmod "github.com/open-sensor-research-platform/osrp/internal/services/streams/module"
)

// Engine holds the composed modules
type Engine struct {
	Streams *streamsmod.Module
	Export  *exportmod.Module
	Fusion  *fusionmod.Module
}

// Options tune composition
type Options struct {
	// Cached reads go through the TTL cache; request paths want it, batch runs do not
	Cached bool
}

// Compose builds streams, export and fusion in dependency order and registers
// each module's ports under its name
func Compose(deps modkit.Deps, opt Options) (*Engine, error) {
	p, err := fusionmod.LoadPlan(deps.Cfg)
	if err != nil {
		return nil, err
	}

	sm, err := streamsmod.New(deps)
	if err != nil {
		return nil, err
	}
	sp := module.MustPortsOf[streamsmod.Ports](sm)

	em, err := exportmod.New(deps, exportmod.FromConfig(deps.Cfg, exportmod.Options{
		Format: p.Export.Format,
		Dir:    p.Export.Dir,
		Prefix: p.Name,
	}))
	if err != nil {
		return nil, err
	}

	src := sp.Reader
	if opt.Cached {
		src = sp.Cached
	}
	fm, err := fusionmod.New(deps, src, module.MustPortsOf[exportmod.Ports](em).Sink)
	if err != nil {
		return nil, err
	}

	for _, m := range []modkit.Module{sm, em, fm} {
		module.Register(m.Name(), m.Ports())
	}
	return &Engine{Streams: sm, Export: em, Fusion: fm}, nil
}

// Ports returns the fusion ports
func (e *Engine) Ports() fusionmod.Ports { return module.MustPortsOf[fusionmod.Ports](e.Fusion) }
