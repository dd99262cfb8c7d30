// Package service runs sessions, alignment and window extraction over the
// stream reader, and fans batch runs out over participant-days
package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/align"
	"github.com/open-sensor-research-platform/osrp/internal/core/segment"
	"github.com/open-sensor-research-platform/osrp/internal/core/streams"
	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	"github.com/open-sensor-research-platform/osrp/internal/platform/metrics"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/domain"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/guardrails"
	"github.com/open-sensor-research-platform/osrp/internal/services/fusion/plan"
	streamsdom "github.com/open-sensor-research-platform/osrp/internal/services/streams/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config holds batch tuning
type Config struct {
	Workers  int // concurrent units; <=0 -> 1
	Timeouts guardrails.Timeouts
}

// Service implements domain.Ports
type Service struct {
	Source  domain.SourcePort
	Plan    plan.Plan
	Cfg     Config
	Lease   guardrails.Lease
	Sink    domain.SinkPort
	Metrics *metrics.Metrics

	now   func() time.Time
	newID func() string
}

var _ domain.Ports = (*Service)(nil)

// New constructs the fusion service; the plan must already be validated
func New(src domain.SourcePort, p plan.Plan, cfg Config, m *metrics.Metrics) *Service {
	if src == nil {
		panic("fusion.Service requires a non nil stream source")
	}
	return &Service{
		Source:  src,
		Plan:    p,
		Cfg:     cfg,
		Lease:   guardrails.NoLease,
		Metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithLease sets the per-day lease used by Nightly
func (s *Service) WithLease(l guardrails.Lease) *Service {
	if l != nil {
		s.Lease = l
	}
	return s
}

// WithSink sets where Nightly writes its windows
func (s *Service) WithSink(sink domain.SinkPort) *Service {
	s.Sink = sink
	return s
}

// Sessions reads one screen stream and segments it
func (s *Service) Sessions(ctx context.Context, req domain.SessionsRequest) ([]segment.Session, error) {
	if err := checkSpan(req.Span); err != nil {
		return nil, err
	}
	name, err := s.screenName(req.Stream)
	if err != nil {
		return nil, err
	}
	gap := s.Plan.Gap
	if req.Gap != nil {
		gap = *req.Gap
	}
	in, err := s.readStreams(ctx, req.Participant, map[string]streams.Kind{name: streams.KindScreen}, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	scr, _ := in[name].(streams.ScreenStream)
	return segment.Segment(scr, gap)
}

// Aligned reads the requested plan streams and aligns them on one grid
func (s *Service) Aligned(ctx context.Context, req domain.AlignRequest) (align.Frame, error) {
	if err := checkSpan(req.Span); err != nil {
		return align.Frame{}, err
	}
	cat, err := s.subset(req.Streams)
	if err != nil {
		return align.Frame{}, err
	}
	freq := req.Freq
	if freq == 0 {
		freq = s.Plan.Freq
	}
	fill := s.Plan.FillPolicy()
	if req.Fill != "" {
		if fill, err = align.ParseFillPolicy(req.Fill); err != nil {
			return align.Frame{}, err
		}
	}
	in, err := s.readStreams(ctx, req.Participant, cat, req.Start, req.End)
	if err != nil {
		return align.Frame{}, err
	}
	return align.Align(in, freq, fill)
}

// Features extracts windows for one participant over the span
func (s *Service) Features(ctx context.Context, req domain.FeaturesRequest) ([]window.FeatureWindow, error) {
	if err := checkSpan(req.Span); err != nil {
		return nil, err
	}
	size := req.Window
	if size == 0 {
		size = s.Plan.Window
	}
	return s.extract(ctx, req.Participant, req.Start, req.End, size)
}

func (s *Service) extract(ctx context.Context, participant string, start, end time.Time, size time.Duration) ([]window.FeatureWindow, error) {
	in, err := s.readStreams(ctx, participant, s.Plan.Catalog(), start, end)
	if err != nil {
		return nil, err
	}
	labels, err := s.labels(ctx, participant, start, end)
	if err != nil {
		return nil, err
	}
	return window.ExtractAll([]window.Participant{{
		ID:      participant,
		Range:   window.Range{Start: start, End: end},
		Streams: in,
		Labels:  labels,
	}}, size, s.Plan.Rule())
}

// Participants lists the roster through the plan filter
func (s *Service) Participants(ctx context.Context) ([]streamsdom.Participant, error) {
	all, err := s.Source.ListParticipants(ctx, s.Plan.Participants.Group)
	if err != nil {
		return nil, err
	}
	out := make([]streamsdom.Participant, 0, len(all))
	for _, p := range all {
		if s.Plan.Selects(p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Run fans out over participants x days; unit failures are recorded on the
// run, only cancellation or a bad request fails the call
func (s *Service) Run(ctx context.Context, req domain.RunRequest) (domain.Run, error) {
	if !req.End.After(req.Start) {
		return domain.Run{}, perr.WithField(perr.InvalidArgf("run end %s must follow start %s",
			req.End.Format(time.RFC3339), req.Start.Format(time.RFC3339)), "range")
	}
	ids, err := s.roster(ctx, req.Participants)
	if err != nil {
		return domain.Run{}, err
	}

	run := domain.Run{ID: s.newID(), Plan: s.Plan.Name, Start: req.Start, End: req.End}
	days := s.Plan.Days(req.Start, req.End)
	run.Units = make([]domain.Unit, 0, len(ids)*len(days))
	for _, id := range ids {
		for _, d := range days {
			run.Units = append(run.Units, domain.Unit{Participant: id, Day: d})
		}
	}
	results := make([][]window.FeatureWindow, len(run.Units))

	log := logger.C(logger.WithRun(ctx, run.ID, ""))
	log.Info().Int("participants", len(ids)).Int("days", len(days)).Msg("fusion: run started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Cfg.Workers, 1))
	for i := range run.Units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			u := &run.Units[i]
			lo := later(u.Day, req.Start)
			hi := earlier(u.Day.AddDate(0, 0, 1), req.End)
			results[i] = s.unit(logger.WithRun(gctx, run.ID, u.Participant), u, lo, hi)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return run, perr.Wrap(err, perr.CodeOf(err), "fusion run canceled")
	}

	for i, u := range run.Units {
		switch u.Outcome {
		case domain.OutcomeFailed:
			run.Failed++
		case domain.OutcomeInsufficient:
			run.Insufficient++
		default:
			run.Windows = append(run.Windows, results[i]...)
		}
	}
	run.Finished = s.now()
	log.Info().
		Int("units", len(run.Units)).
		Int("failed", run.Failed).
		Int("insufficient", run.Insufficient).
		Int("windows", len(run.Windows)).
		Msg("fusion: run finished")
	return run, nil
}

// unit processes one participant-day and fills in u
func (s *Service) unit(ctx context.Context, u *domain.Unit, start, end time.Time) []window.FeatureWindow {
	began := s.now()
	ctx, cancel := guardrails.ForUnit(ctx, s.Cfg.Timeouts)
	defer cancel()

	ws, err := s.extract(ctx, u.Participant, start, end, s.Plan.Window)
	secs := s.now().Sub(began).Seconds()
	if err != nil {
		u.Outcome = domain.OutcomeFailed
		u.Err = err.Error()
		s.Metrics.ObserveUnit(u.Outcome, secs, 0, 0)
		logger.C(ctx).Error().Err(err).Time("day", u.Day).Msg("fusion: unit failed")
		return nil
	}
	u.Windows = len(ws)
	for _, w := range ws {
		if w.HasLabel {
			u.Labeled++
		}
	}
	u.Outcome = domain.OutcomeOK
	if s.Plan.MinLabeled > 0 && u.Labeled < s.Plan.MinLabeled {
		u.Outcome = domain.OutcomeInsufficient
		logger.C(ctx).Warn().Time("day", u.Day).Int("labeled", u.Labeled).Int("min", s.Plan.MinLabeled).
			Msg("fusion: too few labeled windows")
	}
	s.Metrics.ObserveUnit(u.Outcome, secs, u.Windows, u.Labeled)
	return ws
}

// Nightly runs one plan day under the lease and writes the windows to the sink
// a day another process already claimed returns guardrails.ErrLeaseHeld
func (s *Service) Nightly(ctx context.Context, day time.Time) (domain.Run, error) {
	loc := s.Plan.Location()
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)

	var run domain.Run
	err := s.Lease(ctx, s.Plan.Name, start, func(ctx context.Context) error {
		var err error
		run, err = s.Run(ctx, domain.RunRequest{Start: start, End: start.AddDate(0, 0, 1)})
		if err != nil {
			return err
		}
		if s.Sink == nil {
			return nil
		}
		return s.Sink.WriteWindows(ctx, run.ID, run.Table())
	})
	if errors.Is(err, guardrails.ErrLeaseHeld) {
		logger.C(ctx).Info().Time("day", start).Msg("fusion: day already claimed, skipping")
	}
	return run, err
}

// roster resolves explicit ids or the plan's roster filter, sorted
func (s *Service) roster(ctx context.Context, explicit []string) ([]string, error) {
	var ids []string
	if len(explicit) > 0 {
		ids = append(ids, explicit...)
	} else {
		ps, err := s.Participants(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return slices.Compact(ids), nil
}

// readStreams reads every catalog entry concurrently
func (s *Service) readStreams(ctx context.Context, participant string, cat map[string]streams.Kind, start, end time.Time) (map[string]streams.Stream, error) {
	var mu sync.Mutex
	out := make(map[string]streams.Stream, len(cat))
	g, gctx := errgroup.WithContext(ctx)
	for name, kind := range cat {
		g.Go(func() error {
			rctx, cancel := guardrails.ForRead(gctx, s.Cfg.Timeouts)
			defer cancel()
			st, err := s.Source.Read(rctx, participant, kind, start, end)
			if err != nil {
				return perr.WithField(err, name)
			}
			mu.Lock()
			out[name] = streams.Deref(st)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// labels reads EMA responses when the plan has a label, keeping only the
// configured survey when one is named
func (s *Service) labels(ctx context.Context, participant string, start, end time.Time) (streams.SurveyStream, error) {
	if s.Plan.Label == nil {
		return streams.SurveyStream{}, nil
	}
	rctx, cancel := guardrails.ForRead(ctx, s.Cfg.Timeouts)
	defer cancel()
	st, err := s.Source.Read(rctx, participant, streams.KindEMA, start, end)
	if err != nil {
		return streams.SurveyStream{}, perr.WithField(err, "labels")
	}
	sv, _ := streams.Deref(st).(streams.SurveyStream)
	if id := s.Plan.Label.SurveyID; id != "" {
		kept := sv.Points[:0:0]
		for _, p := range sv.Points {
			if p.Val.SurveyID == id {
				kept = append(kept, p)
			}
		}
		sv.Points = kept
	}
	return sv, nil
}

// screenName resolves the screen stream to segment
func (s *Service) screenName(name string) (string, error) {
	cat := s.Plan.Catalog()
	if name != "" {
		k, ok := cat[name]
		if !ok {
			return "", perr.WithField(perr.Validationf("stream %q is not in plan %s", name, s.Plan.Name), "stream")
		}
		if k != streams.KindScreen {
			return "", perr.WithField(perr.InvalidArgf("stream %q is %s, sessions need screen", name, k), "stream")
		}
		return name, nil
	}
	for _, n := range s.Plan.Names() {
		if cat[n] == streams.KindScreen {
			return n, nil
		}
	}
	return string(streams.KindScreen), nil
}

// subset narrows the catalog to names; empty names keeps everything
func (s *Service) subset(names []string) (map[string]streams.Kind, error) {
	cat := s.Plan.Catalog()
	if len(names) == 0 {
		return cat, nil
	}
	out := make(map[string]streams.Kind, len(names))
	for _, n := range names {
		k, ok := cat[n]
		if !ok {
			return nil, perr.WithField(perr.Validationf("stream %q is not in plan %s", n, s.Plan.Name), "streams")
		}
		out[n] = k
	}
	return out, nil
}

func checkSpan(sp domain.Span) error {
	if sp.Participant == "" {
		return perr.WithField(perr.Validationf("participant is required"), "participant")
	}
	if sp.End.Before(sp.Start) {
		return perr.WithField(perr.InvalidArgf("end %s precedes start %s",
			sp.End.Format(time.RFC3339), sp.Start.Format(time.RFC3339)), "range")
	}
	return nil
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
