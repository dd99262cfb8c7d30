// Package api provides the HTTP API for the fusion engine
package api

import (
	stdhttp "net/http"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	"github.com/open-sensor-research-platform/osrp/internal/platform/metrics"
	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"

	"github.com/open-sensor-research-platform/osrp/internal/modkit"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/httpkit"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/module"

	fusionapi "github.com/open-sensor-research-platform/osrp/internal/services/api/fusion/module"
	metamod "github.com/open-sensor-research-platform/osrp/internal/services/api/meta/module"
	"github.com/open-sensor-research-platform/osrp/internal/services/engine"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	Metrics        *metrics.Metrics
	EnableProfiler bool
}

// Mount composes the engine and mounts the API onto the given router
func Mount(r phttp.Router, opt Options) error {
	log := opt.Logger
	if log == nil {
		log = logger.Get()
	}
	deps := modkit.Deps{
		Log:     *log,
		Cfg:     opt.Config,
		Metrics: opt.Metrics,
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	eng, err := engine.Compose(deps, engine.Options{Cached: true})
	if err != nil {
		return err
	}
	ports := eng.Ports()

	mods := []module.Module{
		metamod.New(deps, modkit.WithPorts(ports.Plan)),
		fusionapi.New(deps, modkit.WithPorts(ports)),
	}

	// probes and scrape sit outside the versioned stack
	started := time.Now().UTC()
	r.Get("/healthz", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		phttp.JSON(w, stdhttp.StatusOK, map[string]any{"ok": true, "started": started.Format(time.RFC3339)})
	})
	if opt.Metrics != nil {
		r.Handle("/metrics", opt.Metrics.Handler())
	}
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	origins := opt.Config.Prefix("CORE_API_").MayCSV("CORS_ORIGINS", nil)
	httpkit.MountAPIV1(r, httpkit.CommonStack(origins...), func(api httpkit.Router) {
		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
	log.Info().Strs("modules", module.Names()).Strs("cors_origins", origins).Msg("api: mounted")
	return nil
}
