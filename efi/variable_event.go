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
	"fmt"
	"io"
	"unicode/utf16"

	efi "github.com/canonical/go-efilib"
	"golang.org/x/xerrors"
)

// VariableEvent corresponds to the UEFI_VARIABLE_DATA structure that is recorded as the
// event data for EV_EFI_VARIABLE_DRIVER_CONFIG, EV_EFI_VARIABLE_BOOT and
// EV_EFI_VARIABLE_AUTHORITY events.
type VariableEvent struct {
	GUID efi.GUID // The namespace of the variable

	Name string // The short name of the variable

	// NameLength is the length of the variable name, in UTF-16 code units, as it
	// was recorded in the event.
	NameLength uint64

	Data []byte // The variable data at the time of measurement
}

// NewVariableEvent returns a new VariableEvent for the variable with the specified
// GUID and name.
func NewVariableEvent(guid efi.GUID, name string, data []byte) *VariableEvent {
	return &VariableEvent{
		GUID:       guid,
		Name:       name,
		NameLength: uint64(len(utf16.Encode([]rune(name)))),
		Data:       data}
}

func decodeUTF16Name(units []uint16) (string, error) {
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case utf16.IsSurrogate(rune(u)) && u < 0xdc00:
			if i+1 >= len(units) || units[i+1] < 0xdc00 || units[i+1] >= 0xe000 {
				return "", xerrors.Errorf("unpaired high surrogate at offset %d", i)
			}
			i++
		case utf16.IsSurrogate(rune(u)):
			return "", xerrors.Errorf("unpaired low surrogate at offset %d", i)
		}
	}
	return string(utf16.Decode(units)), nil
}

// DecodeVariableEvent decodes a UEFI_VARIABLE_DATA structure from the supplied reader.
// If the structure is truncated or the variable name is not valid UTF-16, a
// *MalformedEventError error is returned.
func DecodeVariableEvent(r io.Reader) (*VariableEvent, error) {
	guid, err := efi.ReadGUID(r)
	if err != nil {
		return nil, &MalformedEventError{xerrors.Errorf("cannot read variable GUID: %w", err)}
	}

	var hdr struct {
		NameLength uint64
		DataLength uint64
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, &MalformedEventError{xerrors.Errorf("cannot read lengths: %w", err)}
	}

	// Read the name one code unit at a time so that a bogus length doesn't
	// result in a large allocation.
	var units []uint16
	for i := uint64(0); i < hdr.NameLength; i++ {
		var u uint16
		if err := binary.Read(r, binary.LittleEndian, &u); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, &MalformedEventError{xerrors.Errorf("cannot read variable name: %w", err)}
		}
		units = append(units, u)
	}
	name, err := decodeUTF16Name(units)
	if err != nil {
		return nil, &MalformedEventError{xerrors.Errorf("cannot decode variable name: %w", err)}
	}

	data := new(bytes.Buffer)
	if _, err := io.CopyN(data, r, int64(hdr.DataLength)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &MalformedEventError{xerrors.Errorf("cannot read variable data: %w", err)}
	}
	if hdr.DataLength > uint64(data.Len()) {
		// CopyN takes a signed length.
		return nil, &MalformedEventError{xerrors.New("variable data length is too large")}
	}

	return &VariableEvent{
		GUID:       guid,
		Name:       name,
		NameLength: hdr.NameLength,
		Data:       data.Bytes()}, nil
}

// Descriptor returns the identity of the variable.
func (e *VariableEvent) Descriptor() efi.VariableDescriptor {
	return efi.VariableDescriptor{Name: e.Name, GUID: e.GUID}
}

// FullName returns the name that can be used to read the current value of this
// variable at runtime. For variables that shim doesn't permit access to at runtime,
// this is the name of shim's runtime copy. Otherwise, it is the name followed by the
// GUID.
func (e *VariableEvent) FullName() string {
	return fullVariableName(e.runtimeDescriptor())
}

// runtimeDescriptor returns the identity of the variable that holds the current
// value of this variable at runtime.
func (e *VariableEvent) runtimeDescriptor() efi.VariableDescriptor {
	if alias, ok := shimRuntimeAliases[e.Name]; ok {
		return alias
	}
	return e.Descriptor()
}

func fullVariableName(desc efi.VariableDescriptor) string {
	return desc.Name + "-" + desc.GUID.String()
}

func (e *VariableEvent) String() string {
	return fmt.Sprintf("EFI variable %s: %d bytes of data", e.FullName(), len(e.Data))
}

// Marshal writes a UEFI_VARIABLE_DATA structure for this variable with the supplied
// data to w, in the same format as DecodeVariableEvent. This reproduces the bytes that
// are hashed by firmware that measures the entire event. If the encoded name is
// inconsistent with NameLength, a *RemarshalError error is returned and nothing is
// written.
func (e *VariableEvent) Marshal(w io.Writer, data []byte) error {
	name := new(bytes.Buffer)
	binary.Write(name, binary.LittleEndian, utf16.Encode([]rune(e.Name)))
	if uint64(name.Len()) != 2*e.NameLength {
		return &RemarshalError{Name: e.Name, NameLength: e.NameLength, EncodedBytes: name.Len()}
	}

	if _, err := w.Write(e.GUID[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.NameLength); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(data))); err != nil {
		return err
	}
	if _, err := name.WriteTo(w); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// Bytes returns a UEFI_VARIABLE_DATA structure for this variable with the supplied data.
// See Marshal.
func (e *VariableEvent) Bytes(data []byte) ([]byte, error) {
	w := bytes.NewBuffer(make([]byte, 0, 16+8+8+(2*len(e.Name))+len(data)))
	if err := e.Marshal(w, data); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
