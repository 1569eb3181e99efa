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
	"errors"
	"fmt"

	"github.com/canonical/go-tpm2"
)

var (
	// ErrNoRecordedDigest is returned from RehashEvent and DetectHashStrategy when the
	// supplied event does not carry a digest for the selected PCR bank, which means that
	// the hashing convention used by the firmware cannot be determined.
	ErrNoRecordedDigest = errors.New("event does not have a digest for the selected algorithm")

	// ErrNoSigner is returned from RehashEvent for EV_EFI_VARIABLE_AUTHORITY events when
	// the signer of the next stage image cannot be determined. In this case, no prediction
	// can be made for the event.
	ErrNoSigner = errors.New("cannot determine the signer of the next stage image")

	// ErrNotVariableEvent is returned from RehashEvent if the supplied event is not an
	// EFI variable measurement.
	ErrNotVariableEvent = errors.New("event is not an EFI variable measurement")

	errNoShimImage = errors.New("no shim image was supplied")
)

// MalformedEventError is returned when the event data associated with an EFI variable
// measurement cannot be decoded.
type MalformedEventError struct {
	err error
}

func (e *MalformedEventError) Error() string {
	return "malformed EFI variable event: " + e.err.Error()
}

func (e *MalformedEventError) Unwrap() error {
	return e.err
}

// RemarshalError is returned when the UTF-16 encoding of a variable name is inconsistent
// with the name length that was recorded with the event, so that the event data cannot be
// reproduced.
type RemarshalError struct {
	Name         string // The variable name
	NameLength   uint64 // The recorded name length, in UTF-16 code units
	EncodedBytes int    // The number of bytes produced by encoding the name
}

func (e *RemarshalError) Error() string {
	return fmt.Sprintf("cannot remarshal EFI variable %q: encoded name is %d bytes but %d UTF-16 code units were recorded",
		e.Name, e.EncodedBytes, e.NameLength)
}

// UnsupportedAlgorithmError is returned from RehashEvent if the PCR bank algorithm is
// not supported.
type UnsupportedAlgorithmError struct {
	Algorithm tpm2.HashAlgorithmId
}

func (e UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported digest algorithm %v", e.Algorithm)
}
