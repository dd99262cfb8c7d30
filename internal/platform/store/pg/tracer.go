package pg

import (
	"context"
	"strings"

	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent is one finished statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives statement events from the store adapters
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs statements at info, slow ones at warn. It pins its own level to
// debug so CORE_*_LOG_SQL works whatever LOG_LEVEL says. component ("pg", "ch")
// tags each line and prefixes the message
func Tracer(root logger.Logger, component string) QueryTracer {
	if component == "" {
		component = "pg"
	}
	return logTracer{
		log: root.Level(zerolog.DebugLevel).With().Str("component", component).Logger(),
		msg: component + " query",
	}
}

type logTracer struct {
	log logger.Logger
	msg string
}

func (l logTracer) OnQuery(_ context.Context, ev QueryEvent) {
	lvl := zerolog.InfoLevel
	if ev.Slow {
		lvl = zerolog.WarnLevel
	}
	l.log.WithLevel(lvl).
		Float64("elapsed_ms", float64(ev.ElapsedUS)/1e3).
		Bool("slow", ev.Slow).
		Str("sql", oneLine(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg(l.msg)
}

// oneLine collapses the indentation of multi-line statements
func oneLine(sql string) string { return strings.Join(strings.Fields(sql), " ") }
