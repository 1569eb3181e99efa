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
	"encoding/binary"
	"errors"
	"io"
	"io/ioutil"
	"sort"

	efi "github.com/canonical/go-efilib"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/xerrors"
)

const (
	shimMokListRTName = "MokListRT"
	shimName          = "Shim"
)

var (
	shimGuid = efi.MakeGUID(0x605dab50, 0xe046, 0x4300, 0xabb6, [...]uint8{0x3d, 0xd8, 0x10, 0xdd, 0x8b, 0x23}) // SHIM_LOCK_GUID

	// shimRuntimeAliases maps the names of shim's boot-services-only variables to
	// the runtime copies that shim mirrors them to.
	shimRuntimeAliases = map[string]efi.VariableDescriptor{
		"MokList":        {Name: "MokListRT", GUID: shimGuid},
		"MokListX":       {Name: "MokListXRT", GUID: shimGuid},
		"MokListTrusted": {Name: "MokListTrustedRT", GUID: shimGuid},
		"MokSBState":     {Name: "MokSBStateRT", GUID: shimGuid},
		"SbatLevel":      {Name: "SbatLevelRT", GUID: shimGuid},
	}
)

// ShimAlias returns the full name of the runtime copy of the supplied variable name,
// if it is one of the variables that shim mirrors at runtime.
func ShimAlias(name string) (alias string, ok bool) {
	desc, ok := shimRuntimeAliases[name]
	if !ok {
		return "", false
	}
	return fullVariableName(desc), true
}

// ShimAliases returns the names of all of the variables that shim mirrors at
// runtime, in sorted order.
func ShimAliases() []string {
	var names []string
	for name := range shimRuntimeAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// shimVendorCertFormat describes the format of the content of shim's .vendor_cert
// section. This is important because it affects the format of measurements.
type shimVendorCertFormat int

const (
	// shimVendorCertIsX509 indicates that shim's .vendor_cert section contains
	// a single X.509 certificate, which shim measures on its own.
	shimVendorCertIsX509 shimVendorCertFormat = iota + 1

	// shimVendorCertIsDb indicates that shim's .vendor_cert section contains
	// a signature database consisting of one or more ESLs.
	shimVendorCertIsDb
)

// shimImageHandle provides some utilities for working with a shim image.
type shimImageHandle interface {
	peImageHandle

	// ReadVendorDB returns the vendor DB from this shim's .vendor_cert section.
	// It returns an error if the section does not exist.
	ReadVendorDB() (efi.SignatureDatabase, shimVendorCertFormat, error)
}

type shimImageHandleImpl struct {
	peImageHandle
}

// newShimImageHandle returns a new shimImageHandle for the supplied peImageHandle.
var newShimImageHandle = func(image peImageHandle) shimImageHandle {
	return &shimImageHandleImpl{peImageHandle: image}
}

type shimVendorCertTable struct {
	DbSize    uint32
	DbxSize   uint32
	DbOffset  uint32
	DbxOffset uint32
}

func (h *shimImageHandleImpl) ReadVendorDB() (efi.SignatureDatabase, shimVendorCertFormat, error) {
	section := h.OpenSection(".vendor_cert")
	if section == nil {
		return nil, 0, errors.New("no .vendor_cert section")
	}

	// The section starts with shim's cert_table struct.
	var table shimVendorCertTable
	if err := binary.Read(section, binary.LittleEndian, &table); err != nil {
		return nil, 0, xerrors.Errorf("cannot read vendor certs table: %w", err)
	}

	if table.DbSize == 0 {
		return nil, shimVendorCertIsDb, nil
	}

	dbData, err := ioutil.ReadAll(io.NewSectionReader(section, int64(table.DbOffset), int64(table.DbSize)))
	if err != nil {
		return nil, 0, xerrors.Errorf("cannot read vendor db data: %w", err)
	}
	if len(dbData) != int(table.DbSize) {
		return nil, 0, errors.New("vendor db data is truncated")
	}

	elem := cryptobyte.String(dbData)
	if elem.ReadASN1Element(&elem, cryptobyte_asn1.SEQUENCE) && len(elem) == len(dbData) {
		return efi.SignatureDatabase{
			{
				Type:       efi.CertX509Guid,
				Signatures: []*efi.SignatureData{{Data: dbData}},
			},
		}, shimVendorCertIsX509, nil
	}

	db, err := efi.ReadSignatureDatabase(bytes.NewReader(dbData))
	if err != nil {
		return nil, 0, xerrors.Errorf("cannot decode vendor db: %w", err)
	}
	return db, shimVendorCertIsDb, nil
}
