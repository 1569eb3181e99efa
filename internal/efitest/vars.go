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
	_ "crypto/sha256"
	"errors"
	"io"
	"sort"

	efi "github.com/canonical/go-efilib"

	. "gopkg.in/check.v1"
)

var shimGuid = efi.MakeGUID(0x605dab50, 0xe046, 0x4300, 0xabb6, [...]uint8{0x3d, 0xd8, 0x10, 0xdd, 0x8b, 0x23})

// VarEntry describes the contents of a mock EFI variable.
type VarEntry struct {
	Attrs   efi.VariableAttributes
	Payload []byte
}

type VarPayloadWriter interface {
	Write(w io.Writer) error
}

// MakeVarPayload returns a byte slice from the supplied VarPayloadWriter.
func MakeVarPayload(c *C, w VarPayloadWriter) []byte {
	buf := new(bytes.Buffer)
	c.Assert(w.Write(buf), IsNil)
	return buf.Bytes()
}

// MockVars is a collection of mock EFI variables.
type MockVars map[efi.VariableDescriptor]*VarEntry

// MakeMockVars creates a new MockVars.
func MakeMockVars() MockVars {
	return make(MockVars)
}

// Get implements [efi.VarsBackend.Get].
func (v MockVars) Get(name string, guid efi.GUID) (efi.VariableAttributes, []byte, error) {
	entry, found := v[efi.VariableDescriptor{Name: name, GUID: guid}]
	if !found {
		return 0, nil, efi.ErrVarNotExist
	}
	return entry.Attrs, entry.Payload, nil
}

// Set implements [efi.VarsBackend.Set].
func (v MockVars) Set(name string, guid efi.GUID, attrs efi.VariableAttributes, data []byte) error {
	return errors.New("not implemented")
}

// List implements [efi.VarsBackend.List].
func (v MockVars) List() ([]efi.VariableDescriptor, error) {
	var out []efi.VariableDescriptor
	for desc := range v {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return bytes.Compare(out[i].GUID[:], out[j].GUID[:]) < 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// AddVar adds the specified mock variable.
func (v MockVars) AddVar(name string, guid efi.GUID, attrs efi.VariableAttributes, data []byte) MockVars {
	v[efi.VariableDescriptor{Name: name, GUID: guid}] = &VarEntry{Attrs: attrs, Payload: data}
	return v
}

// SetDb sets the db image authentication variable.
func (v MockVars) SetDb(c *C, db efi.SignatureDatabase) MockVars {
	return v.AddVar("db", efi.ImageSecurityDatabaseGuid, efi.AttributeNonVolatile|efi.AttributeBootserviceAccess|efi.AttributeRuntimeAccess|efi.AttributeTimeBasedAuthenticatedWriteAccess, MakeVarPayload(c, db))
}

// SetMokListRT sets shim's runtime copy of the MOK database.
func (v MockVars) SetMokListRT(c *C, db efi.SignatureDatabase) MockVars {
	return v.AddVar("MokListRT", shimGuid, efi.AttributeBootserviceAccess|efi.AttributeRuntimeAccess, MakeVarPayload(c, db))
}

// SetSbatLevelRT sets shim's runtime copy of the SBAT revocation level.
func (v MockVars) SetSbatLevelRT(level []byte) MockVars {
	return v.AddVar("SbatLevelRT", shimGuid, efi.AttributeBootserviceAccess|efi.AttributeRuntimeAccess, level)
}
