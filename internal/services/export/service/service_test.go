package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/open-sensor-research-platform/osrp/internal/core/align"
	"github.com/open-sensor-research-platform/osrp/internal/core/segment"
	"github.com/open-sensor-research-platform/osrp/internal/core/timeseries"
	"github.com/open-sensor-research-platform/osrp/internal/core/window"
	"github.com/open-sensor-research-platform/osrp/internal/modkit/repokit"
	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/platform/store"
	"github.com/open-sensor-research-platform/osrp/internal/platform/testkit"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/domain"

	"github.com/xuri/excelize/v2"
)

var at = testkit.Clock(time.Date(2025, 3, 4, 0, 0, 0, 0, time.FixedZone("CST", -6*3600)))

func table() window.Table {
	return window.NewTable([]window.FeatureWindow{
		{
			Participant: "P1", Start: at(9, 0, 0), End: at(10, 0, 0), HourOfDay: 9, DayOfWeek: 1,
			Features: []window.Feature{{Name: "hr_mean", Value: timeseries.Some(72)}, {Name: "hr_std", Value: timeseries.None()}},
			RawLabel: timeseries.Some(4), Label: window.LabelHigh, HasLabel: true,
		},
		{
			Participant: "P1", Start: at(10, 0, 0), End: at(11, 0, 0), HourOfDay: 10, DayOfWeek: 1,
			Features: []window.Feature{{Name: "hr_mean", Value: timeseries.None()}, {Name: "hr_std", Value: timeseries.None()}},
			Label: window.NoLabel,
		},
	})
}

func TestWriteCSV_Windows(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Windows(table())); err != nil {
		t.Fatal(err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d", len(recs))
	}
	want := "participant,window_start,window_end,hour_of_day,day_of_week,hr_mean,hr_std,raw_label,label,has_label"
	if got := strings.Join(recs[0], ","); got != want {
		t.Fatalf("header = %s", got)
	}
	if recs[1][1] != "2025-03-04T09:00:00-06:00" || recs[1][5] != "72" || recs[1][6] != "" {
		t.Fatalf("row 1 = %v", recs[1])
	}
	if recs[2][8] != "-1" || recs[2][9] != "false" || recs[2][7] != "" {
		t.Fatalf("unlabeled row = %v", recs[2])
	}
}

func TestWriteJSONL_KeyOrderAndNulls(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, Windows(table())); err != nil {
		t.Fatal(err)
	}
	sc := bufio.NewScanner(&buf)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], `{"participant":"P1","window_start":"2025-03-04T09:00:00-06:00"`) {
		t.Fatalf("line 1 = %s", lines[0])
	}
	var row map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &row); err != nil {
		t.Fatal(err)
	}
	if row["hr_mean"] != nil || row["label"] != float64(-1) || row["has_label"] != false {
		t.Fatalf("row 2 = %v", row)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, "windows", Windows(table())); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("windows")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "participant" || rows[1][5] != "72" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestFrameAndSessionRows(t *testing.T) {
	f := align.Frame{
		Freq:    5 * time.Minute,
		Index:   []time.Time{at(9, 0, 0), at(9, 5, 0)},
		Columns: []string{"hr_bpm"},
		Cols:    [][]timeseries.Value{{timeseries.Some(70), timeseries.None()}},
	}
	fr := Frame("P1", f)
	if got := strings.Join(fr.Header(), ","); got != "participant,timestamp,hr_bpm" {
		t.Fatalf("frame header = %s", got)
	}
	if rec := fr.Record(1); rec[2] != "" || rec[1] != "2025-03-04T09:05:00-06:00" {
		t.Fatalf("frame row = %v", rec)
	}
	if c := fr.Cells(0); c[2] != 70.0 {
		t.Fatalf("frame cells = %v", c)
	}

	ss := []segment.Session{{Start: at(9, 0, 0), End: at(9, 0, 30), DurationMinutes: 0.5, DominantApp: "Chat", Events: 2}}
	sr := Sessions("P1", ss)
	if rec := sr.Record(0); strings.Join(rec, ",") != "P1,2025-03-04T09:00:00-06:00,2025-03-04T09:00:30-06:00,0.5,Chat,2" {
		t.Fatalf("session row = %v", rec)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]domain.Format{"": domain.FormatCSV, "XLSX": domain.FormatXLSX, " jsonl ": domain.FormatJSONL, "pg": domain.FormatPG} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("parquet"); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestWriteWindows_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := New(nil, nil, Config{Format: domain.FormatJSONL, Dir: dir, Prefix: "pilot"})
	if err := s.WriteWindows(context.Background(), "r1", table()); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "pilot-windows-r1.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(b), "\n") != 2 {
		t.Fatalf("file = %s", b)
	}
}

// recRepo captures inserted rows
type recRepo struct{ rows []domain.WindowRow }

func (r *recRepo) InsertWindows(_ context.Context, rows []domain.WindowRow) (int64, error) {
	r.rows = append(r.rows, rows...)
	return int64(len(rows)), nil
}

type txOnly struct{ store.TxRunner }

func (txOnly) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error { return fn(nil) }

func TestWriteWindows_PG(t *testing.T) {
	rr := &recRepo{}
	binder := repokit.BindFunc[domain.StorageRepo](func(repokit.Queryer) domain.StorageRepo { return rr })
	s := New(txOnly{}, binder, Config{Format: domain.FormatPG})
	s.newID = func() string { return "batch-1" }

	if err := s.WriteWindows(context.Background(), "r1", table()); err != nil {
		t.Fatal(err)
	}
	if len(rr.rows) != 2 {
		t.Fatalf("rows = %d", len(rr.rows))
	}
	r0 := rr.rows[0]
	if r0.BatchID != "batch-1" || r0.RunID != "r1" || *r0.Features["hr_mean"] != 72 || r0.Features["hr_std"] != nil || *r0.RawLabel != 4 {
		t.Fatalf("row 0 = %+v", r0)
	}
	if r0.Label == nil || *r0.Label != window.LabelHigh || !r0.HasLabel {
		t.Fatalf("row 0 label = %v", r0.Label)
	}
	if rr.rows[1].RawLabel != nil || rr.rows[1].Label != nil || rr.rows[1].HasLabel {
		t.Fatalf("row 1 = %+v", rr.rows[1])
	}

	if err := New(nil, nil, Config{Format: domain.FormatPG}).WriteWindows(context.Background(), "r1", table()); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("no db err = %v", err)
	}
	if _, err := s.WriteFile("x", Windows(table())); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("pg file err = %v", err)
	}
}
