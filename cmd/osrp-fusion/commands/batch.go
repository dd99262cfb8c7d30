package commands

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	fusiondom "github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/guardrails"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/schedule"

	"github.com/spf13/cobra"
)

// report prints the run without its windows
func report(w io.Writer, run fusiondom.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

func NewRunCommand() *cobra.Command {
	var (
		start, end   string
		participants []string
		dryRun       bool
	)

	command := &cobra.Command{
		Use:   "run",
		Short: "Extract windows for participants x days and write them to the export sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), "run")
			if err != nil {
				return err
			}
			defer s.close()

			ports := s.eng.Ports()
			from, to, err := parseRange(start, end, ports.Plan.Location())
			if err != nil {
				return err
			}
			run, err := ports.Fusion.Run(cmd.Context(), fusiondom.RunRequest{Start: from, End: to, Participants: participants})
			if err != nil {
				return err
			}
			if !dryRun {
				if err := s.eng.Export.Service().WriteWindows(cmd.Context(), run.ID, run.Table()); err != nil {
					return err
				}
			}
			return report(cmd.OutOrStdout(), run)
		},
	}
	command.Flags().StringVar(&start, "start", "", "first day, RFC3339 or YYYY-MM-DD")
	command.Flags().StringVar(&end, "end", "", "end day (exclusive), RFC3339 or YYYY-MM-DD")
	command.Flags().StringSliceVar(&participants, "participants", nil, "participant ids; empty uses the plan roster")
	command.Flags().BoolVar(&dryRun, "dry-run", false, "extract and report without writing windows")
	return command
}

func NewNightlyCommand() *cobra.Command {
	var day string

	command := &cobra.Command{
		Use:   "nightly",
		Short: "Run the nightly batch for one local day under the day lease",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), "nightly")
			if err != nil {
				return err
			}
			defer s.close()

			ports := s.eng.Ports()
			loc := ports.Plan.Location()
			d := time.Now().In(loc).AddDate(0, 0, -1)
			if day != "" {
				if d, err = parseTime("day", day, loc); err != nil {
					return err
				}
			}
			run, err := ports.Fusion.Nightly(cmd.Context(), d)
			if errors.Is(err, guardrails.ErrLeaseHeld) {
				s.log.Warn().Str("day", d.Format(time.DateOnly)).Msg("day is claimed by a live run or already finished; nothing to do")
				return nil
			}
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), run)
		},
	}
	command.Flags().StringVar(&day, "day", "", "local day YYYY-MM-DD; empty is yesterday in the plan zone")
	return command
}

func NewScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the nightly batch on the plan's cron until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := open(ctx, "schedule")
			if err != nil {
				return err
			}
			defer s.close()

			ports := s.eng.Ports()
			if ports.Plan.Schedule == "" {
				return perr.WithField(perr.InvalidArgf("plan %s has no schedule", ports.Plan.Name), "schedule")
			}
			sched, err := schedule.New(ports.Fusion, ports.Plan)
			if err != nil {
				return err
			}
			return sched.Run(ctx)
		},
	}
}
