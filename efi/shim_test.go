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
	"bytes"
	"encoding/binary"

	efi "github.com/canonical/go-efilib"
	. "gopkg.in/check.v1"

	. "github.com/snapcore/efi-rehash/efi"
	"github.com/snapcore/efi-rehash/internal/efitest"
)

type shimSuite struct {
	pki *testPKI
}

var _ = Suite(&shimSuite{})

func (s *shimSuite) SetUpSuite(c *C) {
	s.pki = getTestPKI(c)
}

func (s *shimSuite) newShimImage(c *C, vendorCert []byte) Image {
	sections := []efitest.PESection{{Name: ".text", Data: []byte("some code")}}
	if vendorCert != nil {
		sections = append(sections, efitest.PESection{Name: ".vendor_cert", Data: vendorCert})
	}
	return NewBytesImage("shimx64.efi", efitest.NewPEImage(c, sections))
}

func (s *shimSuite) readVendorDB(c *C, image Image) (efi.SignatureDatabase, ShimVendorCertFormat, error) {
	pe, err := OpenPeImage(image)
	c.Assert(err, IsNil)
	defer pe.Close()

	return NewShimImageHandle(pe).ReadVendorDB()
}

func (s *shimSuite) TestShimAlias(c *C) {
	alias, ok := ShimAlias("MokList")
	c.Check(ok, Equals, true)
	c.Check(alias, Equals, "MokListRT-605dab50-e046-4300-abb6-3dd810dd8b23")

	alias, ok = ShimAlias("MokSBState")
	c.Check(ok, Equals, true)
	c.Check(alias, Equals, "MokSBStateRT-605dab50-e046-4300-abb6-3dd810dd8b23")
}

func (s *shimSuite) TestShimAliasNotShim(c *C) {
	_, ok := ShimAlias("db")
	c.Check(ok, Equals, false)

	_, ok = ShimAlias("MokListRT")
	c.Check(ok, Equals, false)
}

func (s *shimSuite) TestShimAliases(c *C) {
	c.Check(ShimAliases(), DeepEquals, []string{"MokList", "MokListTrusted", "MokListX", "MokSBState", "SbatLevel"})
}

func (s *shimSuite) TestReadVendorDBX509(c *C) {
	db, format, err := s.readVendorDB(c, s.newShimImage(c, efitest.NewShimVendorCertSection(s.pki.ca.Raw)))
	c.Check(err, IsNil)
	c.Check(format, Equals, ShimVendorCertIsX509)
	c.Check(db, DeepEquals, efi.SignatureDatabase{
		{
			Type:       efi.CertX509Guid,
			Signatures: []*efi.SignatureData{{Data: s.pki.ca.Raw}},
		},
	})
}

func (s *shimSuite) TestReadVendorDBESL(c *C) {
	expected := efi.SignatureDatabase{
		efitest.NewSignatureListX509(c, s.pki.ca.Raw, testOwnerGuid),
		efitest.NewSignatureListX509(c, s.pki.otherCA.Raw, testOwnerGuid),
	}
	expectedData := efitest.MakeVarPayload(c, expected)

	db, format, err := s.readVendorDB(c, s.newShimImage(c, efitest.NewShimVendorCertSection(expectedData)))
	c.Check(err, IsNil)
	c.Check(format, Equals, ShimVendorCertIsDb)
	c.Check(db, HasLen, 2)
	c.Check(efitest.MakeVarPayload(c, db), DeepEquals, expectedData)
}

func (s *shimSuite) TestReadVendorDBEmpty(c *C) {
	db, format, err := s.readVendorDB(c, s.newShimImage(c, efitest.NewShimVendorCertSection(nil)))
	c.Check(err, IsNil)
	c.Check(format, Equals, ShimVendorCertIsDb)
	c.Check(db, HasLen, 0)
}

func (s *shimSuite) TestReadVendorDBNoSection(c *C) {
	_, _, err := s.readVendorDB(c, s.newShimImage(c, nil))
	c.Check(err, ErrorMatches, `no .vendor_cert section`)
}

func (s *shimSuite) TestReadVendorDBTruncated(c *C) {
	w := new(bytes.Buffer)
	binary.Write(w, binary.LittleEndian, []uint32{0x1000, 0, 16, 0x1010})
	w.Write(s.pki.ca.Raw)

	_, _, err := s.readVendorDB(c, s.newShimImage(c, w.Bytes()))
	c.Check(err, ErrorMatches, `vendor db data is truncated`)
}

func (s *shimSuite) TestReadVendorDBInvalid(c *C) {
	_, _, err := s.readVendorDB(c, s.newShimImage(c, efitest.NewShimVendorCertSection([]byte("foo"))))
	c.Check(err, ErrorMatches, `cannot decode vendor db: .*`)
}

func (s *shimSuite) TestReadShimVendorDB(c *C) {
	db, format, err := ReadShimVendorDB(s.newShimImage(c, efitest.NewShimVendorCertSection(s.pki.ca.Raw)))
	c.Check(err, IsNil)
	c.Check(format, Equals, ShimVendorCertIsX509)
	c.Check(db, HasLen, 1)
}

func (s *shimSuite) TestReadShimVendorDBNoImage(c *C) {
	_, _, err := ReadShimVendorDB(nil)
	c.Check(err, ErrorMatches, `no shim image was supplied`)
}

func (s *shimSuite) TestReadShimVendorDBNoSection(c *C) {
	image := s.newShimImage(c, nil)
	_, _, err := ReadShimVendorDB(image)
	c.Check(err, ErrorMatches, `cannot read vendor DB from shimx64.efi: no .vendor_cert section`)
}
