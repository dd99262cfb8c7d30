package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/domain"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/service"
	fusiondom "github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
	streamsdom "github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"

	"github.com/spf13/cobra"
)

// spanFlags are shared by the single-participant commands
type spanFlags struct {
	participant string
	start       string
	end         string
	out         string
	format      string
}

func (f *spanFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.participant, "participant", "", "participant id")
	cmd.Flags().StringVar(&f.start, "start", "", "range start, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "range end (exclusive), RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&f.out, "out", "", "output file; empty writes to stdout")
	cmd.Flags().StringVar(&f.format, "format", "csv", "csv | jsonl | xlsx")
}

func (f *spanFlags) span(loc *time.Location) (fusiondom.Span, error) {
	if f.participant == "" {
		return fusiondom.Span{}, perr.WithField(perr.InvalidArgf("--participant is required"), "participant")
	}
	s, e, err := parseRange(f.start, f.end, loc)
	return fusiondom.Span{Participant: f.participant, Start: s, End: e}, err
}

// emit writes rows to --out or the command's stdout
func (f *spanFlags) emit(cmd *cobra.Command, sheet string, rows domain.Rows) error {
	format, err := service.ParseFormat(f.format)
	if err != nil {
		return err
	}
	if f.out == "" {
		return service.Write(cmd.OutOrStdout(), format, sheet, rows)
	}
	fh, err := os.Create(f.out)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "create %s", f.out)
	}
	if err := service.Write(fh, format, sheet, rows); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

func NewSessionsCommand() *cobra.Command {
	var (
		flags  spanFlags
		stream string
		gap    time.Duration
	)

	command := &cobra.Command{
		Use:   "sessions",
		Short: "Segment a participant's screen events into sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), "sessions")
			if err != nil {
				return err
			}
			defer s.close()

			ports := s.eng.Ports()
			span, err := flags.span(ports.Plan.Location())
			if err != nil {
				return err
			}
			req := fusiondom.SessionsRequest{Span: span, Stream: stream}
			if cmd.Flags().Changed("gap") {
				req.Gap = &gap
			}
			ss, err := ports.Fusion.Sessions(cmd.Context(), req)
			if err != nil {
				return err
			}
			s.log.Info().Str("participant", span.Participant).Int("sessions", len(ss)).Msg("sessions segmented")
			return flags.emit(cmd, "sessions", service.Sessions(span.Participant, ss))
		},
	}
	flags.bind(command)
	command.Flags().StringVar(&stream, "stream", "", "screen stream name; empty picks the plan's first")
	command.Flags().DurationVar(&gap, "gap", 0, "session gap threshold; unset uses the plan")
	return command
}

func NewAlignCommand() *cobra.Command {
	var (
		flags   spanFlags
		streams []string
		freq    time.Duration
		fill    string
	)

	command := &cobra.Command{
		Use:   "align",
		Short: "Align plan streams onto a regular grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), "align")
			if err != nil {
				return err
			}
			defer s.close()

			ports := s.eng.Ports()
			span, err := flags.span(ports.Plan.Location())
			if err != nil {
				return err
			}
			frame, err := ports.Fusion.Aligned(cmd.Context(), fusiondom.AlignRequest{
				Span: span, Streams: streams, Freq: freq, Fill: fill,
			})
			if err != nil {
				return err
			}
			s.log.Info().Str("participant", span.Participant).Int("rows", frame.Len()).Msg("streams aligned")
			return flags.emit(cmd, "aligned", service.Frame(span.Participant, frame))
		},
	}
	flags.bind(command)
	command.Flags().StringSliceVar(&streams, "streams", nil, "streams to align; empty aligns all")
	command.Flags().DurationVar(&freq, "freq", 0, "grid frequency; unset uses the plan")
	command.Flags().StringVar(&fill, "fill", "", "ffill | bfill | interpolate | none; empty uses the plan")
	return command
}

func NewFeaturesCommand() *cobra.Command {
	var (
		flags spanFlags
		size  time.Duration
	)

	command := &cobra.Command{
		Use:   "features",
		Short: "Extract labeled feature windows for one participant",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), "features")
			if err != nil {
				return err
			}
			defer s.close()

			ports := s.eng.Ports()
			span, err := flags.span(ports.Plan.Location())
			if err != nil {
				return err
			}
			ws, err := ports.Fusion.Features(cmd.Context(), fusiondom.FeaturesRequest{Span: span, Window: size})
			if err != nil {
				return err
			}
			s.log.Info().Str("participant", span.Participant).Int("windows", len(ws)).Msg("windows extracted")
			return flags.emit(cmd, "windows", service.Windows(window.NewTable(ws)))
		},
	}
	flags.bind(command)
	command.Flags().DurationVar(&size, "window", 0, "window size; unset uses the plan")
	return command
}

func NewParticipantsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "participants",
		Short: "List participants known to the stream store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd.Context(), "participants")
			if err != nil {
				return err
			}
			defer s.close()

			ps, err := s.eng.Ports().Fusion.Participants(cmd.Context())
			if err != nil {
				return err
			}
			return printParticipants(cmd.OutOrStdout(), ps)
		},
	}
}

func printParticipants(w io.Writer, ps []streamsdom.Participant) error {
	for _, p := range ps {
		if _, err := fmt.Fprintln(w, p.ID); err != nil {
			return err
		}
	}
	return nil
}
