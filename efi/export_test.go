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
	efi "github.com/canonical/go-efilib"
)

// Export constants for testing
const (
	ShimName             = shimName
	ShimVendorCertIsDb   = shimVendorCertIsDb
	ShimVendorCertIsX509 = shimVendorCertIsX509
)

// Export variables and unexported functions for testing
var (
	CertIsAuthorityFor    = certIsAuthorityFor
	ComputeDigest         = computeDigest
	DetermineAuthority    = determineAuthority
	ExtractSigner         = extractSigner
	LocateAuthorityRecord = locateAuthorityRecord
	MakePcrFlags          = makePcrFlags
	NewShimImageHandle    = newShimImageHandle
	OpenPeImage           = openPeImage
	ReadShimVendorDB      = readShimVendorDB
	ShimGuid              = shimGuid
)

// Alias some unexported types for testing. These are required in order to pass these between functions in tests, or to access
// unexported members of some unexported types.
type (
	PeImageHandle        = peImageHandle
	SecureBootDB         = secureBootDB
	ShimImageHandle      = shimImageHandle
	ShimVendorCertFormat = shimVendorCertFormat
)

func MockExtractSigner(fn func(Image) (*efi.WinCertificateAuthenticode, error)) (restore func()) {
	orig := extractSigner
	extractSigner = fn
	return func() {
		extractSigner = orig
	}
}

func MockNewShimImageHandle(fn func(peImageHandle) shimImageHandle) (restore func()) {
	orig := newShimImageHandle
	newShimImageHandle = fn
	return func() {
		newShimImageHandle = orig
	}
}

func MockOpenPeImage(fn func(Image) (peImageHandle, error)) (restore func()) {
	orig := openPeImage
	openPeImage = fn
	return func() {
		openPeImage = orig
	}
}

func (e *VariableEvent) RuntimeDescriptor() efi.VariableDescriptor {
	return e.runtimeDescriptor()
}
