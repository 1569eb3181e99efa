// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package efi

import (
	"io"

	"github.com/canonical/tcglog-parser"

	internal_efi "github.com/snapcore/efi-rehash/internal/efi"
)

// LogEvent is an event from a TCG event log. RawData is the event data exactly as
// it was recorded, which is what firmware measured. This can differ from the bytes
// that the decoded Data serializes to.
type LogEvent = internal_efi.LogEvent

// Log is a TCG event log in which every event retains its recorded event data.
type Log = internal_efi.Log

// ReadLog reads a TCG event log in binary form from r.
func ReadLog(r io.Reader, options *tcglog.LogOptions) (*Log, error) {
	return internal_efi.ReadLog(r, options)
}
