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

/*
Package source loads the rows to probe: company IDs with their web addresses.
Rows come from Postgres or from a CSV export, and are fully materialized before
any probing starts.
*/

import (
	"context"
	"fmt"
	"log"

	"github.com/x-stp/saleprobe/internal/core"
	"github.com/x-stp/saleprobe/internal/metrics"
)

// Source supplies the full set of rows for a run.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Rows returns every row. Rows may contain duplicate IDs; see Dedupe.
	Rows(ctx context.Context) ([]core.Row, error)
}

// Load reads all rows from src and drops repeated IDs, keeping the first
// occurrence of each. It also returns how many rows were dropped.
func Load(ctx context.Context, src Source) ([]core.Row, int, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load rows from %s: %w", src.Name(), err)
	}
	rows, dropped := Dedupe(rows)
	if dropped > 0 {
		log.Printf("Dropped %d rows with repeated company IDs from %s (first occurrence kept)", dropped, src.Name())
	}
	metrics.RecordSourceRows(src.Name(), len(rows))
	log.Printf("Loaded %d rows from %s", len(rows), src.Name())
	return rows, dropped, nil
}

// Dedupe keeps the first row for each ID, preserving order, and reports how
// many rows were dropped.
func Dedupe(rows []core.Row) ([]core.Row, int) {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		if _, ok := seen[row.ID]; ok {
			continue
		}
		seen[row.ID] = struct{}{}
		out = append(out, row)
	}
	return out, len(rows) - len(out)
}
