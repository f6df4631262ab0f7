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

// OutcomeKind is what happened to a single probe request, before it is
// mapped to a Status.
type OutcomeKind int

const (
	// OutcomeInvalid means the address was empty and no request was made.
	OutcomeInvalid OutcomeKind = iota
	// OutcomeResponse means a full response (status line and body) was received.
	OutcomeResponse
	// OutcomeConnectionError covers DNS failures, refused or reset connections,
	// dial failures and TLS verification failures.
	OutcomeConnectionError
	// OutcomeTimeout means the request or body read exceeded its deadline.
	OutcomeTimeout
	// OutcomeOtherError is any other transport or protocol failure.
	OutcomeOtherError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeResponse:
		return "response"
	case OutcomeConnectionError:
		return "connection_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeOtherError:
		return "other_error"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of one probe.
type Outcome struct {
	Kind OutcomeKind
	// URL is the normalized address that was requested. Empty for OutcomeInvalid.
	URL string
	// StatusCode is set for OutcomeResponse.
	StatusCode int
	// ForSale is true when the body contained one of the for-sale phrases.
	ForSale bool
	// Err holds the transport error for the error kinds.
	Err error
}

// Classify maps an outcome to its status label. It is total: every outcome
// yields exactly one label.
//
// A for-sale phrase in the body wins over the status code, so a 200 or 503
// parking page is still reported as for sale.
func Classify(o Outcome) Status {
	switch o.Kind {
	case OutcomeInvalid:
		return StatusInvalidURL
	case OutcomeResponse:
		switch {
		case o.ForSale:
			return StatusForSale
		case o.StatusCode == 200:
			return StatusOpeningNormally
		case o.StatusCode == 503:
			return StatusMaintenance
		default:
			return StatusCodeStatus(o.StatusCode)
		}
	case OutcomeConnectionError:
		return StatusConnectionError
	case OutcomeTimeout:
		return StatusTimedOut
	default:
		if o.Err == nil {
			return ErrorStatus("unknown probe failure")
		}
		return ErrorStatus(o.Err.Error())
	}
}
