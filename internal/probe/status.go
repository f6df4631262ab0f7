package probe

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
	"strings"
	"unicode/utf8"
)

// Status is the label a probe assigns to one website address.
// The label strings are part of the report format and must not change.
type Status string

// Fixed status labels.
const (
	StatusInvalidURL      Status = "Invalid URL"
	StatusForSale         Status = "Domain is for sale"
	StatusOpeningNormally Status = "Website is opening normally"
	StatusMaintenance     Status = "Website is in maintenance"
	StatusConnectionError Status = "Domain is not reachable (Connection error)"
	StatusTimedOut        Status = "Domain timed out"

	statusCodePrefix  = "Website returned status code "
	errorStatusPrefix = "An error occurred: "
)

// MaxErrorDetail caps the diagnostic text embedded in an error label.
const MaxErrorDetail = 256

// StatusCodeStatus returns the label for a response that was neither for sale,
// 200 nor 503.
func StatusCodeStatus(code int) Status {
	return Status(fmt.Sprintf("%s%d", statusCodePrefix, code))
}

// ErrorStatus returns the label for a failure that is neither a connection
// error nor a timeout. Long details are truncated to MaxErrorDetail bytes.
func ErrorStatus(details string) Status {
	if len(details) > MaxErrorDetail {
		cut := MaxErrorDetail
		for cut > 0 && !utf8.RuneStart(details[cut]) {
			cut--
		}
		details = details[:cut]
	}
	return Status(errorStatusPrefix + details)
}

// IsForSale reports whether the status marks a parked, for-sale domain.
func (s Status) IsForSale() bool { return s == StatusForSale }

// Class collapses a status into a low-cardinality bucket, used for metrics
// labels and the run summary.
func (s Status) Class() string {
	switch {
	case s == StatusInvalidURL:
		return "invalid"
	case s == StatusForSale:
		return "for_sale"
	case s == StatusOpeningNormally:
		return "normal"
	case s == StatusMaintenance:
		return "maintenance"
	case s == StatusConnectionError:
		return "connection_error"
	case s == StatusTimedOut:
		return "timeout"
	case strings.HasPrefix(string(s), statusCodePrefix):
		return "other_status"
	case strings.HasPrefix(string(s), errorStatusPrefix):
		return "error"
	default:
		return "unknown"
	}
}

func (s Status) String() string { return string(s) }
