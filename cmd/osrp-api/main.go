package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	"github.com/open-sensor-research-platform/osrp/internal/platform/metrics"
	phttp "github.com/open-sensor-research-platform/osrp/internal/platform/net/http"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store/schema"
	"github.com/open-sensor-research-platform/osrp/internal/services/api"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("CORE_ENV_FILE")); err != nil {
		logger.Get().Fatal().Err(err).Msg("load env file")
	}

	root := config.New()
	core := root.Prefix("CORE_")
	apiCfg := core.Prefix("API_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// postgres holds leases and exported windows, clickhouse holds the raw streams
	st, err := store.Open(ctx, store.FromConf(core, "osrp-api"), store.WithLogger(*l), store.WithRole("api"))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if st.PG != nil && schema.Wanted(root) {
		if err := schema.Apply(ctx, st.PG); err != nil {
			l.Panic().Err(err).Msg("schema.Apply failed")
		}
	}

	// reads CORE_API_PORT
	srv := phttp.NewServer(core)

	if err := api.Mount(srv.Router(), api.Options{
		Config:         root,
		Store:          st,
		Logger:         l,
		Metrics:        metrics.New(),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	}); err != nil {
		l.Panic().Err(err).Msg("api.Mount failed")
	}

	// Run drains for CORE_SHUTDOWN_GRACE once a signal lands
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
	l.Info().Msg("osrp-api stopped")
}
