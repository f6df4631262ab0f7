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
	"sync/atomic"
	"time"

	"github.com/x-stp/saleprobe/internal/probe"
)

// RunStats holds runtime statistics for a run.
// Memory layout: Uses atomic.Int64. Ensure fields are 64-bit aligned.
type RunStats struct {
	TotalRows        atomic.Int64
	CompletedRows    atomic.Int64
	ForSale          atomic.Int64
	Normal           atomic.Int64
	Maintenance      atomic.Int64
	OtherStatus      atomic.Int64
	ConnectionErrors atomic.Int64
	Timeouts         atomic.Int64
	OtherErrors      atomic.Int64
	InvalidURLs      atomic.Int64
	Panics           atomic.Int64
	Backpressure     atomic.Int64 // Submissions that found their worker queue full.
	StartTime        time.Time
}

// StatusCount is one line of the per-status breakdown.
type StatusCount struct {
	Label string
	Count int64
}

func (s *RunStats) record(status probe.Status) {
	s.CompletedRows.Add(1)
	switch status.Class() {
	case "for_sale":
		s.ForSale.Add(1)
	case "normal":
		s.Normal.Add(1)
	case "maintenance":
		s.Maintenance.Add(1)
	case "other_status":
		s.OtherStatus.Add(1)
	case "connection_error":
		s.ConnectionErrors.Add(1)
	case "timeout":
		s.Timeouts.Add(1)
	case "invalid":
		s.InvalidURLs.Add(1)
	default:
		s.OtherErrors.Add(1)
	}
}

// Breakdown returns the per-status counters in display order.
func (s *RunStats) Breakdown() []StatusCount {
	return []StatusCount{
		{Label: string(probe.StatusForSale), Count: s.ForSale.Load()},
		{Label: string(probe.StatusOpeningNormally), Count: s.Normal.Load()},
		{Label: string(probe.StatusMaintenance), Count: s.Maintenance.Load()},
		{Label: "Other status codes", Count: s.OtherStatus.Load()},
		{Label: string(probe.StatusConnectionError), Count: s.ConnectionErrors.Load()},
		{Label: string(probe.StatusTimedOut), Count: s.Timeouts.Load()},
		{Label: "Other errors", Count: s.OtherErrors.Load()},
		{Label: string(probe.StatusInvalidURL), Count: s.InvalidURLs.Load()},
	}
}

// Rate returns completed rows per second since StartTime.
func (s *RunStats) Rate() float64 {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	return float64(s.CompletedRows.Load()) / elapsed
}
