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
	"crypto"
	"debug/pe"
	"errors"
	"fmt"
	"io"

	efi "github.com/canonical/go-efilib"
	"golang.org/x/xerrors"
)

// peImageHandle provides utilities for working with a PE image's sections and signatures.
type peImageHandle interface {
	// Close closes this image handle
	Close() error

	// Source returns the image source
	Source() Image

	// OpenSection returns a new io.SectionReader for the section with
	// the specified name, or nil if no section exists.
	OpenSection(name string) *io.SectionReader

	// ImageDigest returns the Authenticode hash for this image with the
	// specified algorithm.
	ImageDigest(alg crypto.Hash) ([]byte, error)

	// SecureBootSignatures returns all of the secure boot signatures for this
	// image if it is signed.
	SecureBootSignatures() ([]*efi.WinCertificateAuthenticode, error)
}

type peImageHandleImpl struct {
	source Image
	pefile *pe.File
	r      ImageReader
}

// openPeImage opens the supplied image and returns a new peImageHandle. The
// caller must call peImageHandle.Close when done.
var openPeImage = func(image Image) (peImageHandle, error) {
	r, err := image.Open()
	if err != nil {
		return nil, xerrors.Errorf("cannot open image: %w", err)
	}

	pefile, err := pe.NewFile(r)
	if err != nil {
		r.Close()
		return nil, xerrors.Errorf("cannot decode image: %w", err)
	}

	return &peImageHandleImpl{source: image, pefile: pefile, r: r}, nil
}

func (h *peImageHandleImpl) Close() error {
	return h.r.Close()
}

func (h *peImageHandleImpl) Source() Image {
	return h.source
}

func (h *peImageHandleImpl) OpenSection(name string) *io.SectionReader {
	section := h.pefile.Section(name)
	if section == nil {
		return nil
	}
	// pe.Section.Open only returns an io.ReadSeeker.
	return io.NewSectionReader(section.ReaderAt, 0, int64(section.Size))
}

const (
	certTableIndex = 4 // Index of the Certificate Table entry in the Data Directory of a PE image optional header
)

func (h *peImageHandleImpl) ImageDigest(alg crypto.Hash) ([]byte, error) {
	return efi.ComputePeImageDigest(alg, h.r, h.r.Size())
}

func (h *peImageHandleImpl) SecureBootSignatures() ([]*efi.WinCertificateAuthenticode, error) {
	var dd []pe.DataDirectory
	switch oh := h.pefile.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dd = oh.DataDirectory[0:oh.NumberOfRvaAndSizes]
	case *pe.OptionalHeader64:
		dd = oh.DataDirectory[0:oh.NumberOfRvaAndSizes]
	default:
		return nil, errors.New("cannot obtain security directory entry: no optional header")
	}

	if len(dd) <= certTableIndex {
		return nil, nil
	}

	// The security directory entry is a file offset rather than a RVA, and points
	// to one or more WIN_CERTIFICATE structures.
	certReader := io.NewSectionReader(
		h.r,
		int64(dd[certTableIndex].VirtualAddress),
		int64(dd[certTableIndex].Size))

	// Images with multiple signers have multiple single-signed Authenticode signatures.
	var sigs []*efi.WinCertificateAuthenticode

SignatureLoop:
	for i := 0; ; i++ {
		// Entries are 8-byte aligned.
		off, _ := certReader.Seek(0, io.SeekCurrent)
		alignSize := (8 - (off & 7)) % 8
		certReader.Seek(alignSize, io.SeekCurrent)

		c, err := efi.ReadWinCertificate(certReader)
		switch {
		case xerrors.Is(err, io.EOF):
			break SignatureLoop
		case err != nil:
			return nil, xerrors.Errorf("cannot decode WIN_CERTIFICATE from security directory entry %d: %w", i, err)
		}

		sig, ok := c.(*efi.WinCertificateAuthenticode)
		if !ok {
			return nil, fmt.Errorf("unexpected WIN_CERTIFICATE type from security directory entry %d: not an Authenticode signature", i)
		}

		// Firmware only supports SHA-256 Authenticode signatures.
		if sig.DigestAlgorithm() != crypto.SHA256 {
			return nil, fmt.Errorf("signature from security directory entry %d has unexpected digest algorithm", i)
		}

		sigs = append(sigs, sig)
	}

	return sigs, nil
}

// extractSigner returns the first secure boot signature from the supplied image. This
// is the signature that firmware or shim uses to authenticate the image. It returns
// ErrNoSigner if the image isn't signed.
var extractSigner = func(image Image) (*efi.WinCertificateAuthenticode, error) {
	h, err := openPeImage(image)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	sigs, err := h.SecureBootSignatures()
	if err != nil {
		return nil, xerrors.Errorf("cannot obtain secure boot signatures: %w", err)
	}
	if len(sigs) == 0 || sigs[0].GetSigner() == nil {
		return nil, ErrNoSigner
	}
	return sigs[0], nil
}
