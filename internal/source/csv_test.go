package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantIDs   []string
		wantAddrs []string
		wantNames []string
		wantErr   string
	}{
		{
			name:      "default header",
			input:     "CompanyId,WebAddress,Name\n1,example.com,Alice\n2,,Bob\n",
			wantIDs:   []string{"1", "2"},
			wantAddrs: []string{"example.com", ""},
			wantNames: []string{"Alice", "Bob"},
		},
		{
			name:      "case-insensitive reordered header",
			input:     "name, webaddress ,COMPANYID\nAlice,https://a.example,10\n",
			wantIDs:   []string{"10"},
			wantAddrs: []string{"https://a.example"},
			wantNames: []string{"Alice"},
		},
		{
			name:      "byte order mark",
			input:     "\ufeffCompanyId,WebAddress\n7,b.example\n",
			wantIDs:   []string{"7"},
			wantAddrs: []string{"b.example"},
			wantNames: []string{""},
		},
		{
			name:      "short record",
			input:     "CompanyId,Name,WebAddress\n3,Carol\n",
			wantIDs:   []string{"3"},
			wantAddrs: []string{""},
			wantNames: []string{"Carol"},
		},
		{
			name:    "missing address column",
			input:   "CompanyId,Name\n1,Alice\n",
			wantErr: `missing required column "WebAddress"`,
		},
		{
			name:    "empty id",
			input:   "CompanyId,WebAddress\n ,a.example\n",
			wantErr: "line 2: empty CompanyId",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: "read header",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows, err := ReadCSV(strings.NewReader(tt.input), DefaultColumns())
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rows) != len(tt.wantIDs) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.wantIDs))
			}
			for i, row := range rows {
				if row.ID != tt.wantIDs[i] || row.Address != tt.wantAddrs[i] || row.Name != tt.wantNames[i] {
					t.Fatalf("row %d = %+v", i, row)
				}
			}
		})
	}
}

func TestCSVFileRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := os.WriteFile(path, []byte("CompanyId,WebAddress,Name\n1,a.example,A\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src := &CSVFile{Path: path}
	rows, err := src.Rows(context.Background())
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Address != "a.example" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	missing := &CSVFile{Path: filepath.Join(t.TempDir(), "nope.csv")}
	if _, err := missing.Rows(context.Background()); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
