package service

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	perr "github.com/open-sensor-research-platform/osrp/internal/platform/errors"
	"github.com/open-sensor-research-platform/osrp/internal/services/export/domain"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes the header then one record per row; absent values are empty
func WriteCSV(w io.Writer, rows domain.Rows) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rows.Header()); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "write csv header")
	}
	for i := 0; i < rows.Len(); i++ {
		if err := cw.Write(rows.Record(i)); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "write csv row %d", i)
		}
	}
	cw.Flush()
	return perr.WrapIf(cw.Error(), perr.ErrorCodeUnknown, "flush csv")
}

// WriteJSONL writes one object per row with keys in header order
// absent values are null and timestamps RFC 3339
func WriteJSONL(w io.Writer, rows domain.Rows) error {
	bw := bufio.NewWriter(w)
	header := rows.Header()
	keys := make([][]byte, len(header))
	for j, h := range header {
		keys[j], _ = json.Marshal(h)
	}
	var line bytes.Buffer
	for i := 0; i < rows.Len(); i++ {
		line.Reset()
		line.WriteByte('{')
		for j, c := range rows.Cells(i) {
			if j > 0 {
				line.WriteByte(',')
			}
			line.Write(keys[j])
			line.WriteByte(':')
			b, err := json.Marshal(textTime(c))
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeJSON, "encode row %d column %s", i, header[j])
			}
			line.Write(b)
		}
		line.WriteString("}\n")
		if _, err := bw.Write(line.Bytes()); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnknown, "write jsonl")
		}
	}
	return perr.WrapIf(bw.Flush(), perr.ErrorCodeUnknown, "flush jsonl")
}

// WriteXLSX writes rows to a single sheet workbook; numbers stay numeric
func WriteXLSX(w io.Writer, sheet string, rows domain.Rows) error {
	f := excelize.NewFile()
	defer f.Close()
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "name sheet")
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "open sheet writer")
	}

	header := rows.Header()
	hdr := make([]any, len(header))
	for j, h := range header {
		hdr[j] = h
	}
	if err := sw.SetRow("A1", hdr); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "write xlsx header")
	}
	for i := 0; i < rows.Len(); i++ {
		cells := rows.Cells(i)
		for j, c := range cells {
			cells[j] = textTime(c)
		}
		addr, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(addr, cells); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "write xlsx row %d", i)
		}
	}
	if err := sw.Flush(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "flush xlsx")
	}
	return perr.WrapIf(f.Write(w), perr.ErrorCodeUnknown, "write xlsx")
}

// textTime renders instants as RFC 3339 so the zone offset survives every format
func textTime(c any) any {
	if t, ok := c.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return c
}
