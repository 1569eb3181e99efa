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
	"bytes"
	"crypto"
	"crypto/x509"

	efi "github.com/canonical/go-efilib"
	"golang.org/x/xerrors"
)

var (
	// Db is the identity of the authorized signature database.
	Db = efi.VariableDescriptor{Name: "db", GUID: efi.ImageSecurityDatabaseGuid}

	// MokListRT is the identity of shim's runtime copy of the machine owner key database.
	MokListRT = efi.VariableDescriptor{Name: shimMokListRTName, GUID: shimGuid}
)

// signatureTypeDigests maps ESL types that contain image digests to the
// corresponding digest algorithm.
var signatureTypeDigests = map[efi.GUID]crypto.Hash{
	efi.CertSHA1Guid:   crypto.SHA1,
	efi.CertSHA256Guid: crypto.SHA256,
	efi.CertSHA384Guid: crypto.SHA384,
	efi.CertSHA512Guid: crypto.SHA512,
}

// secureBootDB describes a secure boot database containing signatures that can be
// used to authenticate an image.
type secureBootDB struct {
	Name     string
	Contents efi.SignatureDatabase
}

// certIsAuthorityFor determines whether ca is the signer certificate itself or
// directly issued it.
func certIsAuthorityFor(ca, signer *x509.Certificate) bool {
	if bytes.Equal(ca.Raw, signer.Raw) {
		return true
	}
	if !bytes.Equal(ca.RawSubject, signer.RawIssuer) {
		return false
	}
	return signer.CheckSignatureFrom(ca) == nil
}

// imageDigest computes the Authenticode digest of the supplied image.
func imageDigest(image Image, alg crypto.Hash) ([]byte, error) {
	h, err := openPeImage(image)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.ImageDigest(alg)
}

// determineAuthority returns the entry in the supplied database that authenticates
// the image with the supplied signature. X.509 certificates are tested first, in the
// order that they appear, against the signer and the rest of the signature's
// certificate chain. If none match, any image digests in the database are compared
// against the image's Authenticode digest. It returns nil if there is no match.
func determineAuthority(db *secureBootDB, sig *efi.WinCertificateAuthenticode, image Image) (*efi.SignatureData, error) {
	signer := sig.GetSigner()

	for _, l := range db.Contents {
		if l.Type != efi.CertX509Guid || len(l.Signatures) == 0 {
			continue
		}

		ca, err := x509.ParseCertificate(l.Signatures[0].Data)
		if err != nil {
			continue
		}

		if certIsAuthorityFor(ca, signer) || sig.CertLikelyTrustAnchor(ca) {
			return l.Signatures[0], nil
		}
	}

	digests := make(map[crypto.Hash][]byte)
	for _, l := range db.Contents {
		alg, ok := signatureTypeDigests[l.Type]
		if !ok || !alg.Available() {
			continue
		}

		digest, ok := digests[alg]
		if !ok {
			var err error
			digest, err = imageDigest(image, alg)
			if err != nil {
				return nil, xerrors.Errorf("cannot compute image digest: %w", err)
			}
			digests[alg] = digest
		}

		for _, esd := range l.Signatures {
			if bytes.Equal(esd.Data, digest) {
				return esd, nil
			}
		}
	}

	return nil, nil
}
