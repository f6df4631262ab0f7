package util

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
	"strings"
	"unicode"
)

// MaxFilenameLength caps the length of a sanitized name, in bytes.
const MaxFilenameLength = 100

// SanitizeFilename creates a filesystem- and object-key-safe name from a file
// name or other string. Path separators, shell-hostile characters, whitespace
// and control characters become underscores; the result is cut to
// MaxFilenameLength bytes without splitting a character.
func SanitizeFilename(input string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '#', '%':
			return '_'
		}
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(input))

	if len(replaced) <= MaxFilenameLength {
		return replaced
	}
	cut := 0
	for i := range replaced {
		if i > MaxFilenameLength {
			break
		}
		cut = i
	}
	return replaced[:cut]
}
