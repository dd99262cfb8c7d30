// Package commands holds the osrp-fusion batch CLI
package commands

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/modkit"
	"github.com/open-sensor-research-platform/osrp/internal/platform/config"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	"github.com/open-sensor-research-platform/osrp/internal/platform/metrics"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store/schema"
	ptime "github.com/open-sensor-research-platform/osrp/internal/platform/time"
	"github.com/open-sensor-research-platform/osrp/internal/services/engine"

	"github.com/spf13/cobra"
)

var (
	planPath string
	envFile  string
	noStore  bool
)

var rootCmd = &cobra.Command{
	Use:           "osrp-fusion",
	Short:         "Segment, align and window participant sensor streams",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&planPath, "plan", "", "study plan YAML (overrides CORE_FUSION_PLAN)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "KEY=VALUE file loaded before config is read")
	rootCmd.PersistentFlags().BoolVar(&noStore, "no-store", false, "skip postgres and clickhouse; needs CORE_STREAMS_FIXTURE")

	rootCmd.AddCommand(NewSessionsCommand())
	rootCmd.AddCommand(NewAlignCommand())
	rootCmd.AddCommand(NewFeaturesCommand())
	rootCmd.AddCommand(NewParticipantsCommand())
	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewNightlyCommand())
	rootCmd.AddCommand(NewScheduleCommand())
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Get().Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("osrp-fusion failed")
		os.Exit(1)
	}
}

// session is one command's composed engine and the store under it
type session struct {
	eng *engine.Engine
	st  *store.Store
	log *logger.Logger
}

func overrideEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

// open loads config, opens the store unless --no-store, and composes the
// engine without the read cache
func open(ctx context.Context, role string) (*session, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "load %s", envFile)
	}
	overrideEnv("CORE_FUSION_PLAN", planPath)

	root := config.New()
	l := logger.Named("osrp-fusion." + role)
	s := &session{log: l}

	deps := modkit.Deps{Log: *l, Cfg: root, Metrics: metrics.New()}
	if !noStore {
		st, err := store.Open(ctx, store.FromConf(root.Prefix("CORE_"), "osrp-fusion"), store.WithLogger(*l), store.WithRole(role))
		if err != nil {
			return nil, err
		}
		s.st = st
		deps.PG, deps.CH = st.PG, st.CH
		if st.PG != nil && schema.Wanted(root) {
			if err := schema.Apply(ctx, st.PG); err != nil {
				s.close()
				return nil, err
			}
		}
	}

	eng, err := engine.Compose(deps, engine.Options{})
	if err != nil {
		s.close()
		return nil, err
	}
	s.eng = eng
	return s, nil
}

func (s *session) close() {
	if s.st == nil {
		return
	}
	if err := s.st.Close(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("failed to close store")
	}
}

// parseTime accepts RFC3339 or a bare date, which is midnight in loc
func parseTime(flag, v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, perr.WithField(perr.InvalidArgf("--%s is required", flag), flag)
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := ptime.ParseDay(v, loc); err == nil {
		return t, nil
	}
	return time.Time{}, perr.WithField(perr.InvalidArgf("--%s: want RFC3339 or YYYY-MM-DD, got %q", flag, v), flag)
}

// parseRange reads --start and --end; a bare --end date is exclusive midnight
func parseRange(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	s, err := parseTime("start", start, loc)
	if err != nil {
		return s, s, err
	}
	e, err := parseTime("end", end, loc)
	if err != nil {
		return s, e, err
	}
	if !e.After(s) {
		return s, e, perr.WithField(perr.InvalidArgf("--end must be after --start"), "end")
	}
	return s, e, nil
}
