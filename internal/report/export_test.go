package report

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/x-stp/saleprobe/internal/probe"
)

var sampleEntries = []Entry{
	{CompanyID: "1", WebAddress: "a.example", Name: "Alice", Status: probe.StatusForSale},
	{CompanyID: "22", WebAddress: "http://b.example", Name: "Bob, Inc.", Status: probe.StatusForSale},
}

func TestExporterFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    string
		format  string
		wantErr bool
	}{
		{path: "out/report.xlsx", format: "xlsx"},
		{path: "REPORT.XLSX", format: "xlsx"},
		{path: "report.csv", format: "csv"},
		{path: "report.xls", wantErr: true},
		{path: "report", wantErr: true},
	}
	for _, tt := range tests {
		exp, err := ExporterFor(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.path)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		if exp.Format() != tt.format {
			t.Fatalf("%s: format = %s, want %s", tt.path, exp.Format(), tt.format)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "for-sale.xlsx")
	exp, err := Write(path, sampleEntries)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if exp.ContentType() != ContentTypeXLSX {
		t.Fatalf("content type = %s", exp.ContentType())
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	want := [][]string{Header, sampleEntries[0].Record(), sampleEntries[1].Record()}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestXLSXCustomSheetHeaderOnly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := (&XLSXExporter{Sheet: "For Sale"}).Export(path, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("For Sale")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], Header) {
		t.Fatalf("rows = %v, want header only", rows)
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "for-sale.csv")
	if _, err := Write(path, sampleEntries); err != nil {
		t.Fatalf("write: %v", err)
	}

	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := [][]string{Header, sampleEntries[0].Record(), sampleEntries[1].Record()}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("records = %v, want %v", records, want)
	}
}

func TestWriteAtomicLeavesNothingOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("boom")
	err := writeAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "previous" {
		t.Fatalf("existing report was replaced: %q", b)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the original file, found %d entries", len(entries))
	}
}
