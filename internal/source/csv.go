package source

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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/x-stp/saleprobe/internal/core"
)

// Default CSV column names, matching the database export.
const (
	DefaultIDColumn      = "CompanyId"
	DefaultAddressColumn = "WebAddress"
	DefaultNameColumn    = "Name"
)

// Columns names the CSV header fields to read. Matching is case-insensitive.
type Columns struct {
	ID      string
	Address string
	Name    string // optional
}

// DefaultColumns returns the column names of the database export.
func DefaultColumns() Columns {
	return Columns{ID: DefaultIDColumn, Address: DefaultAddressColumn, Name: DefaultNameColumn}
}

// CSVFile reads rows from a CSV file with a header line.
type CSVFile struct {
	Path    string
	Columns Columns
}

// Name implements Source.
func (c *CSVFile) Name() string { return "csv" }

// Rows implements Source.
func (c *CSVFile) Rows(ctx context.Context) ([]core.Row, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cols := c.Columns
	if cols.ID == "" && cols.Address == "" {
		cols = DefaultColumns()
	}
	return ReadCSV(f, cols)
}

// ReadCSV reads rows from r. The ID and address columns are required; the
// name column is read when present.
func ReadCSV(r io.Reader, cols Columns) ([]core.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	idIdx := columnIndex(header, cols.ID)
	if idIdx < 0 {
		return nil, fmt.Errorf("missing required column %q", cols.ID)
	}
	addrIdx := columnIndex(header, cols.Address)
	if addrIdx < 0 {
		return nil, fmt.Errorf("missing required column %q", cols.Address)
	}
	nameIdx := -1
	if cols.Name != "" {
		nameIdx = columnIndex(header, cols.Name)
	}

	var rows []core.Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		id := strings.TrimSpace(field(rec, idIdx))
		if id == "" {
			return nil, fmt.Errorf("line %d: empty %s", line, cols.ID)
		}
		rows = append(rows, core.Row{
			ID:      id,
			Address: field(rec, addrIdx),
			Name:    field(rec, nameIdx),
		})
	}
	return rows, nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

// field returns rec[i], or "" for a short record or a missing column.
func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
