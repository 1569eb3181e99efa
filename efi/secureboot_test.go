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

package efi_test

import (
	"crypto"
	_ "crypto/sha1"
	"crypto/sha256"

	efi "github.com/canonical/go-efilib"
	. "gopkg.in/check.v1"

	. "github.com/snapcore/efi-rehash/efi"
	"github.com/snapcore/efi-rehash/internal/efitest"
	"github.com/snapcore/efi-rehash/internal/testutil"
)

type securebootSuite struct {
	mockImageHandleMixin
	pki *testPKI
}

var _ = Suite(&securebootSuite{})

func (s *securebootSuite) SetUpSuite(c *C) {
	s.pki = getTestPKI(c)
}

func (s *securebootSuite) TestCertIsAuthorityForSelf(c *C) {
	c.Check(CertIsAuthorityFor(s.pki.leaf, s.pki.leaf), testutil.IsTrue)
}

func (s *securebootSuite) TestCertIsAuthorityForIssuer(c *C) {
	c.Check(CertIsAuthorityFor(s.pki.ca, s.pki.leaf), testutil.IsTrue)
	c.Check(CertIsAuthorityFor(s.pki.otherCA, s.pki.otherLeaf), testutil.IsTrue)
}

func (s *securebootSuite) TestCertIsAuthorityForUnrelated(c *C) {
	c.Check(CertIsAuthorityFor(s.pki.otherCA, s.pki.leaf), testutil.IsFalse)
	c.Check(CertIsAuthorityFor(s.pki.leaf, s.pki.ca), testutil.IsFalse)
	c.Check(CertIsAuthorityFor(s.pki.otherLeaf, s.pki.leaf), testutil.IsFalse)
}

func (s *securebootSuite) newImage(c *C) (*mockImage, *efi.WinCertificateAuthenticode) {
	digest := sha256.Sum256([]byte("some image"))
	image := newMockImage().withDigest(crypto.SHA256, digest[:]).sign(c, s.pki.signature(c, digest[:]))
	return image, image.sigs[0]
}

func (s *securebootSuite) TestDetermineAuthorityCA(c *C) {
	image, sig := s.newImage(c)
	db := &SecureBootDB{
		Name: "db",
		Contents: efi.SignatureDatabase{
			efitest.NewSignatureListX509(c, s.pki.otherCA.Raw, testOwnerGuid),
			efitest.NewSignatureListX509(c, s.pki.ca.Raw, efi.GlobalVariable),
		},
	}

	esd, err := DetermineAuthority(db, sig, image)
	c.Check(err, IsNil)
	c.Check(esd, Equals, db.Contents[1].Signatures[0])
}

func (s *securebootSuite) TestDetermineAuthorityLeaf(c *C) {
	image, sig := s.newImage(c)
	db := &SecureBootDB{
		Name: "db",
		Contents: efi.SignatureDatabase{
			efitest.NewSignatureListX509(c, s.pki.leaf.Raw, testOwnerGuid),
		},
	}

	esd, err := DetermineAuthority(db, sig, image)
	c.Check(err, IsNil)
	c.Check(esd, Equals, db.Contents[0].Signatures[0])
}

func (s *securebootSuite) TestDetermineAuthorityFirstMatch(c *C) {
	image, sig := s.newImage(c)
	db := &SecureBootDB{
		Name: "db",
		Contents: efi.SignatureDatabase{
			efitest.NewSignatureListX509(c, s.pki.ca.Raw, testOwnerGuid),
			efitest.NewSignatureListX509(c, s.pki.ca.Raw, efi.GlobalVariable),
		},
	}

	esd, err := DetermineAuthority(db, sig, image)
	c.Check(err, IsNil)
	c.Check(esd, Equals, db.Contents[0].Signatures[0])
	c.Check(esd.Owner, Equals, testOwnerGuid)
}

func (s *securebootSuite) TestDetermineAuthorityInvalidCertSkipped(c *C) {
	image, sig := s.newImage(c)
	db := &SecureBootDB{
		Name: "db",
		Contents: efi.SignatureDatabase{
			efitest.NewSignatureListX509(c, []byte("not a certificate"), testOwnerGuid),
			efitest.NewSignatureListX509(c, s.pki.ca.Raw, efi.GlobalVariable),
		},
	}

	esd, err := DetermineAuthority(db, sig, image)
	c.Check(err, IsNil)
	c.Check(esd, Equals, db.Contents[1].Signatures[0])
}

func (s *securebootSuite) TestDetermineAuthorityDigest(c *C) {
	image, sig := s.newImage(c)
	other := sha256.Sum256([]byte("other image"))
	db := &SecureBootDB{
		Name: "db",
		Contents: efi.SignatureDatabase{
			efitest.NewSignatureListX509(c, s.pki.otherCA.Raw, testOwnerGuid),
			efitest.NewSignatureListDigests(c, crypto.SHA256, testOwnerGuid, other[:], image.digest),
		},
	}

	esd, err := DetermineAuthority(db, sig, image)
	c.Check(err, IsNil)
	c.Check(esd, Equals, db.Contents[1].Signatures[1])
}

func (s *securebootSuite) TestDetermineAuthorityCertPreferredOverDigest(c *C) {
	image, sig := s.newImage(c)
	db := &SecureBootDB{
		Name: "db",
		Contents: efi.SignatureDatabase{
			efitest.NewSignatureListDigests(c, crypto.SHA256, testOwnerGuid, image.digest),
			efitest.NewSignatureListX509(c, s.pki.ca.Raw, efi.GlobalVariable),
		},
	}

	esd, err := DetermineAuthority(db, sig, image)
	c.Check(err, IsNil)
	c.Check(esd, Equals, db.Contents[1].Signatures[0])
}

func (s *securebootSuite) TestDetermineAuthorityNoMatch(c *C) {
	image, sig := s.newImage(c)
	other := sha256.Sum256([]byte("other image"))
	db := &SecureBootDB{
		Name: "db",
		Contents: efi.SignatureDatabase{
			efitest.NewSignatureListX509(c, s.pki.otherCA.Raw, testOwnerGuid),
			efitest.NewSignatureListDigests(c, crypto.SHA256, testOwnerGuid, other[:]),
		},
	}

	esd, err := DetermineAuthority(db, sig, image)
	c.Check(err, IsNil)
	c.Check(esd, IsNil)
}

func (s *securebootSuite) TestDetermineAuthorityEmpty(c *C) {
	image, sig := s.newImage(c)

	esd, err := DetermineAuthority(&SecureBootDB{Name: "MokList"}, sig, image)
	c.Check(err, IsNil)
	c.Check(esd, IsNil)
}

func (s *securebootSuite) TestDetermineAuthorityDigestError(c *C) {
	image, sig := s.newImage(c)
	db := &SecureBootDB{
		Name: "db",
		Contents: efi.SignatureDatabase{
			efitest.NewSignatureListDigests(c, crypto.SHA1, testOwnerGuid, make([]byte, 20)),
		},
	}

	_, err := DetermineAuthority(db, sig, image)
	c.Check(err, ErrorMatches, `cannot compute image digest: invalid alg`)
}
