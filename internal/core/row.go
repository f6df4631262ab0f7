package core

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
	"fmt"
	"sort"
	"sync"

	"github.com/x-stp/saleprobe/internal/probe"
)

// Row is one company/address pair pulled from a row source.
// Address may be empty or malformed; the prober decides what that means.
type Row struct {
	ID      string
	Address string
	Name    string
}

// Result is the classification of a single row.
type Result struct {
	ID     string
	Status probe.Status
}

// ResultSet accumulates exactly one status per row ID.
// Set is safe for concurrent use; readers should wait for the run to finish.
type ResultSet struct {
	mu      sync.Mutex
	results map[string]probe.Status
}

// NewResultSet returns an empty set sized for n rows.
func NewResultSet(n int) *ResultSet {
	return &ResultSet{results: make(map[string]probe.Status, n)}
}

// Set stores the status for id. A second write to the same id is rejected
// and leaves the first value in place.
func (rs *ResultSet) Set(id string, status probe.Status) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, exists := rs.results[id]; exists {
		return fmt.Errorf("row %q: %w", id, ErrDuplicateRow)
	}
	rs.results[id] = status
	return nil
}

// Get returns the status recorded for id.
func (rs *ResultSet) Get(id string) (probe.Status, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	status, ok := rs.results[id]
	return status, ok
}

// Len returns the number of recorded results.
func (rs *ResultSet) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.results)
}

// Snapshot returns a copy of the recorded statuses keyed by row ID.
func (rs *ResultSet) Snapshot() map[string]probe.Status {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make(map[string]probe.Status, len(rs.results))
	for id, status := range rs.results {
		out[id] = status
	}
	return out
}

// Results returns the recorded results ordered by row ID.
func (rs *ResultSet) Results() []Result {
	snap := rs.Snapshot()
	out := make([]Result, 0, len(snap))
	for id, status := range snap {
		out = append(out, Result{ID: id, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CheckDuplicates returns ErrDuplicateRow for the first row ID seen twice.
func CheckDuplicates(rows []Row) error {
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if _, ok := seen[row.ID]; ok {
			return fmt.Errorf("row %q at index %d: %w", row.ID, i, ErrDuplicateRow)
		}
		seen[row.ID] = struct{}{}
	}
	return nil
}
