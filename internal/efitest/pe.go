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

package efitest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"strconv"

	. "gopkg.in/check.v1"
)

// PESection describes a section in a mock PE image.
type PESection struct {
	Name string
	Data []byte
}

const (
	peHeaderOffset   = 0x80
	peFileAlignment  = 0x200
	peOptHeaderSize  = 240
	peSectionHdrSize = 40
)

type winCertificateHdr struct {
	Length          uint32
	Revision        uint16
	CertificateType uint16
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// NewWinCertificateAuthenticode returns a WIN_CERTIFICATE structure containing the
// supplied detached Authenticode signature.
func NewWinCertificateAuthenticode(der []byte) []byte {
	hdr := winCertificateHdr{
		Length:          uint32(binary.Size(winCertificateHdr{}) + len(der)),
		Revision:        0x0200,
		CertificateType: 0x0002, // WIN_CERT_TYPE_PKCS_SIGNED_DATA
	}
	w := new(bytes.Buffer)
	binary.Write(w, binary.LittleEndian, hdr)
	w.Write(der)
	return w.Bytes()
}

// NewPEImage returns a minimal x86-64 PE image containing the supplied sections. If
// any detached Authenticode signatures are supplied, they are added to the image's
// security directory. Section names longer than 8 bytes are stored in a COFF string
// table, as the GNU toolchain does for sections such as shim's .vendor_cert.
func NewPEImage(c *C, sections []PESection, sigs ...[]byte) []byte {
	headersSize := alignUp(peHeaderOffset+4+binary.Size(pe.FileHeader{})+peOptHeaderSize+(len(sections)*peSectionHdrSize), peFileAlignment)

	strtab := new(bytes.Buffer)

	var sectionHdrs []pe.SectionHeader32
	offset := headersSize
	for i, s := range sections {
		var name [8]uint8
		if len(s.Name) > len(name) {
			copy(name[:], "/"+strconv.Itoa(4+strtab.Len()))
			strtab.WriteString(s.Name)
			strtab.WriteByte(0)
		} else {
			copy(name[:], s.Name)
		}

		size := alignUp(len(s.Data), peFileAlignment)
		sectionHdrs = append(sectionHdrs, pe.SectionHeader32{
			Name:             name,
			VirtualSize:      uint32(len(s.Data)),
			VirtualAddress:   uint32(0x1000 * (i + 1)),
			SizeOfRawData:    uint32(size),
			PointerToRawData: uint32(offset),
			Characteristics:  0x40000040, // IMAGE_SCN_CNT_INITIALIZED_DATA | IMAGE_SCN_MEM_READ
		})
		offset += size
	}

	var symtabOffset int
	if strtab.Len() > 0 {
		symtabOffset = offset
		offset = alignUp(offset+4+strtab.Len(), 8)
	}

	var certTable []byte
	for _, sig := range sigs {
		cert := NewWinCertificateAuthenticode(sig)
		certTable = append(certTable, cert...)
		certTable = append(certTable, make([]byte, alignUp(len(cert), 8)-len(cert))...)
	}

	oh := pe.OptionalHeader64{
		Magic:               0x20b,
		SizeOfImage:         uint32(0x1000 * (len(sections) + 1)),
		SizeOfHeaders:       uint32(headersSize),
		SectionAlignment:    0x1000,
		FileAlignment:       peFileAlignment,
		Subsystem:           10, // IMAGE_SUBSYSTEM_EFI_APPLICATION
		NumberOfRvaAndSizes: 16,
	}
	if len(certTable) > 0 {
		oh.DataDirectory[4] = pe.DataDirectory{VirtualAddress: uint32(offset), Size: uint32(len(certTable))}
	}

	w := new(bytes.Buffer)
	w.Write([]byte("MZ"))
	w.Write(make([]byte, 0x3c-w.Len()))
	binary.Write(w, binary.LittleEndian, uint32(peHeaderOffset))
	w.Write(make([]byte, peHeaderOffset-w.Len()))

	w.Write([]byte("PE\x00\x00"))
	binary.Write(w, binary.LittleEndian, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     uint16(len(sections)),
		PointerToSymbolTable: uint32(symtabOffset),
		SizeOfOptionalHeader: peOptHeaderSize,
		Characteristics:      0x22, // IMAGE_FILE_EXECUTABLE_IMAGE | IMAGE_FILE_LARGE_ADDRESS_AWARE
	})
	c.Assert(binary.Size(oh), Equals, peOptHeaderSize)
	binary.Write(w, binary.LittleEndian, oh)
	for _, hdr := range sectionHdrs {
		binary.Write(w, binary.LittleEndian, hdr)
	}
	w.Write(make([]byte, headersSize-w.Len()))

	for i, s := range sections {
		w.Write(s.Data)
		w.Write(make([]byte, int(sectionHdrs[i].SizeOfRawData)-len(s.Data)))
	}

	if strtab.Len() > 0 {
		binary.Write(w, binary.LittleEndian, uint32(4+strtab.Len()))
		strtab.WriteTo(w)
		w.Write(make([]byte, offset-w.Len()))
	}

	c.Assert(w.Len(), Equals, offset)
	w.Write(certTable)
	return w.Bytes()
}

// NewShimVendorCertSection returns the contents of a shim .vendor_cert section
// containing the supplied vendor DB, which is either a DER encoded certificate or a
// signature database.
func NewShimVendorCertSection(db []byte) []byte {
	w := new(bytes.Buffer)
	binary.Write(w, binary.LittleEndian, struct {
		DbSize    uint32
		DbxSize   uint32
		DbOffset  uint32
		DbxOffset uint32
	}{
		DbSize:    uint32(len(db)),
		DbOffset:  16,
		DbxOffset: uint32(16 + len(db)),
	})
	w.Write(db)
	return w.Bytes()
}
