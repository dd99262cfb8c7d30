// Package modkit wires service and API modules from shared deps
package modkit

import (
	"github.com/open-sensor-research-platform/osrp/internal/modkit/module"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	"github.com/open-sensor-research-platform/osrp/internal/platform/metrics"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
)

// Module is the contract every module satisfies
type Module = module.Module

// Deps holds what modules are built from
// PG and CH are nil when the process runs without a store
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	Metrics *metrics.Metrics
}
