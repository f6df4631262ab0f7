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

/*
Package report turns probe results into the for-sale report: it joins results
back onto their rows, keeps the parked domains, writes the spreadsheet and can
upload it to S3.
*/

import (
	"github.com/x-stp/saleprobe/internal/core"
	"github.com/x-stp/saleprobe/internal/probe"
)

// Header is the column header of every exported report.
var Header = []string{"CompanyId", "WebAddress", "Name", "Status"}

// Entry is one line of the report.
type Entry struct {
	CompanyID  string
	WebAddress string
	Name       string
	Status     probe.Status
}

// Record returns the entry as cells in Header order.
func (e Entry) Record() []string {
	return []string{e.CompanyID, e.WebAddress, e.Name, string(e.Status)}
}

// Filter joins results onto rows by ID and keeps the rows whose status is
// exactly "Domain is for sale". Rows without a result are dropped. Output
// follows input row order.
func Filter(rows []core.Row, results *core.ResultSet) []Entry {
	var out []Entry
	for _, row := range rows {
		status, ok := results.Get(row.ID)
		if !ok || !status.IsForSale() {
			continue
		}
		out = append(out, Entry{
			CompanyID:  row.ID,
			WebAddress: row.Address,
			Name:       row.Name,
			Status:     status,
		})
	}
	return out
}
