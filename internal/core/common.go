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
	"context"
)

// WorkItem represents a unit of work: probing one row.
// It is pooled via sync.Pool by the scheduler; callbacks must not retain it.
type WorkItem struct {
	Key      string          // Used for sharding work across workers.
	Row      Row             // Row to process.
	Callback WorkCallback    // Function to execute for this work item.
	Ctx      context.Context // Context of the submitting run.
}

// WorkCallback is the function signature for work item callbacks
type WorkCallback func(item *WorkItem) error

func (item *WorkItem) reset() {
	item.Key = ""
	item.Row = Row{}
	item.Callback = nil
	item.Ctx = nil
}
