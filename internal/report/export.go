package report

/*
saleprobe — finds company websites whose domains are parked for sale
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xuri/excelize/v2"

	"github.com/x-stp/saleprobe/internal/metrics"
)

// Content types of the supported report formats.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"
)

// Exporter writes report entries to a file.
type Exporter interface {
	// Format is a short name used in logs and metrics.
	Format() string
	// ContentType is the MIME type of the written file.
	ContentType() string
	// Export writes the header and entries to path, replacing any existing file.
	Export(path string, entries []Entry) error
}

// ExporterFor picks an exporter by the extension of path.
func ExporterFor(path string) (Exporter, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return &XLSXExporter{}, nil
	case ".csv":
		return &CSVExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q (want .xlsx or .csv)", ext)
	}
}

// Write exports entries to path with the exporter matching its extension.
func Write(path string, entries []Entry) (Exporter, error) {
	exp, err := ExporterFor(path)
	if err != nil {
		return nil, err
	}
	done := metrics.MeasureDuration(metrics.GetMetrics().ExportDuration, prometheus.Labels{"format": exp.Format()})
	defer done()
	if err := exp.Export(path, entries); err != nil {
		return nil, fmt.Errorf("write %s report: %w", exp.Format(), err)
	}
	metrics.RecordReportRows(exp.Format(), len(entries))
	return exp, nil
}

// XLSXExporter writes a single-sheet workbook.
type XLSXExporter struct {
	// Sheet is the worksheet name. Defaults to "Sheet1".
	Sheet string
}

func (x *XLSXExporter) Format() string      { return "xlsx" }
func (x *XLSXExporter) ContentType() string { return ContentTypeXLSX }

func (x *XLSXExporter) Export(path string, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := x.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	} else if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", cells(Header)); err != nil {
		return err
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells(e.Record())); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	return writeAtomic(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

func cells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// CSVExporter writes a comma-separated file with a header line.
type CSVExporter struct{}

func (c *CSVExporter) Format() string      { return "csv" }
func (c *CSVExporter) ContentType() string { return ContentTypeCSV }

func (c *CSVExporter) Export(path string, entries []Entry) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Header); err != nil {
			return err
		}
		for _, e := range entries {
			if err := cw.Write(e.Record()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// writeAtomic writes to a temporary file next to path and renames it into
// place, so a failed export never leaves a truncated report behind.
func writeAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
