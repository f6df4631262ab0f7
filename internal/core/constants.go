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
	"time"
)

// Application-wide constants for tuning performance and behavior.
const (
	// --- Workers ---

	// MaxWorkers defines the absolute upper limit on the number of concurrent worker goroutines
	// that the scheduler will create, regardless of the configured concurrency.
	MaxWorkers = 2048

	// DefaultProbeWorkers is the worker count used when no concurrency is configured.
	// Each worker holds at most one probe in flight.
	DefaultProbeWorkers = 64

	// WorkerQueueCapacity is the capacity of the shared queue holding rows that no idle
	// worker could take. Submission blocks when it is full; rows are never dropped.
	WorkerQueueCapacity = 64

	// --- Observability ---

	// StatsReportInterval specifies how frequently the live statistics line is refreshed.
	StatsReportInterval = 2 * time.Second

	// MinimumProgressLoggingInterval defines the minimum time that must elapse between
	// progress log updates to avoid flooding logs with too frequent updates.
	MinimumProgressLoggingInterval = 5 * time.Second
)
