// Package service writes sessions, aligned frames and feature windows to
// files or to the feature_windows table
package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/logger"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/domain"

	"github.com/google/uuid"
)

// Config holds sink configuration
type Config struct {
	Format domain.Format
	Dir    string
	// Prefix starts every file name, usually the plan name
	Prefix string
}

// Service implements domain.SinkPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Cfg    Config

	newID func() string
}

var _ domain.SinkPort = (*Service)(nil)

// New constructs the export service; db and binder are only needed for FormatPG
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], cfg Config) *Service {
	if cfg.Format == "" {
		cfg.Format = domain.FormatCSV
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg, newID: uuid.NewString}
}

// ParseFormat validates a format name
func ParseFormat(s string) (domain.Format, error) {
	switch f := domain.Format(strings.ToLower(strings.TrimSpace(s))); f {
	case domain.FormatCSV, domain.FormatXLSX, domain.FormatJSONL, domain.FormatPG:
		return f, nil
	case "":
		return domain.FormatCSV, nil
	default:
		return "", perr.WithField(perr.Validationf("unknown export format %q", s), "format")
	}
}

// Write encodes rows to w in a file format
func Write(w io.Writer, f domain.Format, sheet string, rows domain.Rows) error {
	switch f {
	case domain.FormatCSV, "":
		return WriteCSV(w, rows)
	case domain.FormatJSONL:
		return WriteJSONL(w, rows)
	case domain.FormatXLSX:
		return WriteXLSX(w, sheet, rows)
	default:
		return perr.WithField(perr.InvalidArgf("format %s cannot be written to a stream", f), "format")
	}
}

// WriteFile writes rows to Dir/<prefix>-<name>.<format> and returns the path
func (s *Service) WriteFile(name string, rows domain.Rows) (string, error) {
	if s.Cfg.Format == domain.FormatPG {
		return "", perr.WithField(perr.InvalidArgf("format pg has no file form"), "format")
	}
	if err := os.MkdirAll(s.Cfg.Dir, 0o755); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "create %s", s.Cfg.Dir)
	}
	base := name
	if s.Cfg.Prefix != "" {
		base = s.Cfg.Prefix + "-" + name
	}
	path := filepath.Join(s.Cfg.Dir, base+"."+string(s.Cfg.Format))
	f, err := os.Create(path)
	if err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "create %s", path)
	}
	if err := Write(f, s.Cfg.Format, name, rows); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, perr.WrapIf(f.Close(), perr.ErrorCodeUnknown, "close "+path)
}

// WriteWindows persists one run's windows in the configured format
func (s *Service) WriteWindows(ctx context.Context, runID string, t window.Table) error {
	if s.Cfg.Format != domain.FormatPG {
		path, err := s.WriteFile("windows-"+runID, Windows(t))
		if err != nil {
			return err
		}
		logger.C(ctx).Info().Str("path", path).Int("rows", t.Len()).Msg("export: windows written")
		return nil
	}
	if s.DB == nil || s.Binder == nil {
		return perr.Unavailablef("export: postgres is not configured")
	}

	rows := Rowify(s.newID(), runID, t)
	var inserted int64
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		n, err := s.Binder.Bind(q).InsertWindows(ctx, rows)
		inserted = n
		return err
	})
	if err != nil {
		return err
	}
	logger.C(ctx).Info().Int64("inserted", inserted).Int("rows", len(rows)).Msg("export: windows stored")
	return nil
}

// Rowify converts a window table into feature_windows rows under one batch id
func Rowify(batchID, runID string, t window.Table) []domain.WindowRow {
	out := make([]domain.WindowRow, t.Len())
	for i, w := range t.Windows {
		feats := make(map[string]*float64, len(t.Features))
		for j, v := range t.Values(i) {
			if v.Valid {
				f := v.Float64
				feats[t.Features[j]] = &f
			} else {
				feats[t.Features[j]] = nil
			}
		}
		row := domain.WindowRow{
			BatchID:     batchID,
			RunID:       runID,
			Participant: w.Participant,
			Start:       w.Start,
			End:         w.End,
			HourOfDay:   w.HourOfDay,
			DayOfWeek:   w.DayOfWeek,
			Features:    feats,
			HasLabel:    w.HasLabel,
		}
		if w.HasLabel {
			label := w.Label
			row.Label = &label
		}
		if w.RawLabel.Valid {
			raw := w.RawLabel.Float64
			row.RawLabel = &raw
		}
		out[i] = row
	}
	return out
}
