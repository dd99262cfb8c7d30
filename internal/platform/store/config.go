package store

import (
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs
	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int
	DialTimeout time.Duration
	LogSQL      bool

	// ClientTag is reported to the server in system.query_log client info
	ClientTag string
}

// FromConf reads store settings from CORE_PG_* and CORE_CH_* style keys under c
func FromConf(c config.Conf, appName string) Config {
	pg := c.Prefix("PG_")
	ch := c.Prefix("CH_")
	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:        pg.MayBool("ENABLED", true),
			URL:            pg.MayString("URL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 8)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:     ch.MayBool("ENABLED", true),
			URL:         ch.MayString("URL", ""),
			MaxConns:    ch.MayInt("MAX_CONNS", 8),
			DialTimeout: ch.MayDuration("DIAL_TIMEOUT", 5*time.Second),
			LogSQL:      ch.MayBool("LOG_SQL", false),
			ClientTag:   ch.MayString("CLIENT_TAG", "dev"),
		},
	}
}
