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
	"encoding/binary"
	"unicode/utf16"

	efi "github.com/canonical/go-efilib"
	"github.com/canonical/go-tpm2"
	"github.com/canonical/tcglog-parser"

	. "gopkg.in/check.v1"

	internal_efi "github.com/snapcore/efi-rehash/internal/efi"
)

// VariableHashing describes which bytes a mock firmware hashes when measuring
// an EFI variable.
type VariableHashing int

const (
	// HashWholeEvent hashes the entire UEFI_VARIABLE_DATA structure, like OVMF
	// does for EV_EFI_VARIABLE_DRIVER_CONFIG events and some Dell firmware does
	// for all events.
	HashWholeEvent VariableHashing = iota

	// HashVariableData hashes only the variable data.
	HashVariableData

	// HashNeither produces digests that match neither convention.
	HashNeither
)

// EncodeVariableEventData returns a UEFI_VARIABLE_DATA structure for the supplied
// variable.
func EncodeVariableEventData(guid efi.GUID, name string, data []byte) []byte {
	return EncodeVariableEventDataUTF16(guid, utf16.Encode([]rune(name)), data)
}

// EncodeVariableEventDataUTF16 returns a UEFI_VARIABLE_DATA structure for the
// variable with the supplied name, which doesn't need to be valid UTF-16.
func EncodeVariableEventDataUTF16(guid efi.GUID, units []uint16, data []byte) []byte {
	w := new(bytes.Buffer)
	w.Write(guid[:])
	binary.Write(w, binary.LittleEndian, uint64(len(units)))
	binary.Write(w, binary.LittleEndian, uint64(len(data)))
	binary.Write(w, binary.LittleEndian, units)
	w.Write(data)
	return w.Bytes()
}

// NewDigests returns the digests of data for each of the supplied algorithms.
func NewDigests(data []byte, algs ...tpm2.HashAlgorithmId) tcglog.DigestMap {
	digests := make(tcglog.DigestMap)
	for _, alg := range algs {
		h := alg.NewHash()
		h.Write(data)
		digests[alg] = h.Sum(nil)
	}
	return digests
}

// NewRawEvent returns an event with the supplied raw event data and digests.
func NewRawEvent(pcr tpm2.Handle, eventType tcglog.EventType, raw []byte, digests tcglog.DigestMap) *tcglog.Event {
	return &tcglog.Event{
		PCRIndex:  pcr,
		EventType: eventType,
		Digests:   digests,
		Data:      tcglog.OpaqueEventData(raw)}
}

// NewVariableEvent returns a mock EFI variable event for the supplied variable, with
// digests for each of the supplied algorithms computed according to hashing.
func NewVariableEvent(c *C, pcr tpm2.Handle, eventType tcglog.EventType, name efi.VariableDescriptor, data []byte, hashing VariableHashing, algs ...tpm2.HashAlgorithmId) *tcglog.Event {
	raw := EncodeVariableEventData(name.GUID, name.Name, data)

	digests := make(tcglog.DigestMap)
	for _, alg := range algs {
		h := alg.NewHash()
		switch hashing {
		case HashWholeEvent:
			h.Write(raw)
		case HashVariableData:
			h.Write(data)
		case HashNeither:
			h.Write([]byte("neither"))
		default:
			c.Fatal("invalid hashing")
		}
		digests[alg] = h.Sum(nil)
	}

	return NewRawEvent(pcr, eventType, raw, digests)
}

func newSpecIdEvent(algs []tpm2.HashAlgorithmId) *tcglog.Event {
	var digestSizes []tcglog.EFISpecIdEventAlgorithmSize
	for _, alg := range algs {
		digestSizes = append(digestSizes,
			tcglog.EFISpecIdEventAlgorithmSize{
				AlgorithmId: alg,
				DigestSize:  uint16(alg.Size()),
			})
	}

	return &tcglog.Event{
		PCRIndex:  0,
		EventType: tcglog.EventTypeNoAction,
		Digests:   tcglog.DigestMap{tpm2.HashAlgorithmSHA1: make(tpm2.Digest, tpm2.HashAlgorithmSHA1.Size())},
		Data: &tcglog.SpecIdEvent03{
			SpecVersionMajor: 2,
			UintnSize:        2,
			DigestSizes:      digestSizes,
		},
	}
}

// NewEventsLog creates a crypto-agile TCG log for testing that contains the supplied
// events. Each event must have a digest for every one of the supplied algorithms.
func NewEventsLog(algs []tpm2.HashAlgorithmId, events ...*tcglog.Event) *tcglog.Log {
	return tcglog.NewLogForTesting(append([]*tcglog.Event{newSpecIdEvent(algs)}, events...))
}

// EncodeLog returns the supplied log in the binary form that firmware produces.
func EncodeLog(c *C, log *tcglog.Log) []byte {
	w := new(bytes.Buffer)
	c.Assert(log.Write(w), IsNil)
	return w.Bytes()
}

// ReadLog encodes the supplied log and reads it back, so that every event is decoded
// in the same way as an event in a log read from the kernel.
func ReadLog(c *C, log *tcglog.Log) *internal_efi.Log {
	out, err := internal_efi.ReadLog(bytes.NewReader(EncodeLog(c, log)), &tcglog.LogOptions{})
	c.Assert(err, IsNil)
	return out
}

// LogOptions provides options for [NewLog].
type LogOptions struct {
	Algorithms []tpm2.HashAlgorithmId // the digest algorithms to include

	Db          []byte          // the contents of db at boot
	Authorities [][]byte        // the EFI_SIGNATURE_DATA entries recorded for each image verification
	BootHashing VariableHashing // how EV_EFI_VARIABLE_BOOT events are hashed
	SbatLevel   []byte          // the SbatLevel recorded by shim, omitted if empty
}

// NewLog creates a mock TCG log for testing. It contains the secure boot
// configuration and boot variable measurements of a typical firmware, followed by
// the verification events for each image.
func NewLog(c *C, opts *LogOptions) *tcglog.Log {
	events := []*tcglog.Event{newSpecIdEvent(opts.Algorithms)}

	for _, v := range []struct {
		name efi.VariableDescriptor
		data []byte
	}{
		{name: efi.VariableDescriptor{Name: "SecureBoot", GUID: efi.GlobalVariable}, data: []byte{1}},
		{name: efi.VariableDescriptor{Name: "db", GUID: efi.ImageSecurityDatabaseGuid}, data: opts.Db},
	} {
		events = append(events, NewVariableEvent(c, 7, tcglog.EventTypeEFIVariableDriverConfig, v.name, v.data, HashWholeEvent, opts.Algorithms...))
	}

	separator := func(pcr tpm2.Handle) *tcglog.Event {
		data := &tcglog.SeparatorEventData{Value: tcglog.SeparatorEventNormalValue}
		ev := &tcglog.Event{
			PCRIndex:  pcr,
			EventType: tcglog.EventTypeSeparator,
			Digests:   make(tcglog.DigestMap),
			Data:      data}
		for _, alg := range opts.Algorithms {
			h := alg.NewHash()
			c.Assert(data.Write(h), IsNil)
			ev.Digests[alg] = h.Sum(nil)
		}
		return ev
	}
	events = append(events, separator(7))

	var order [4]uint8
	binary.LittleEndian.PutUint16(order[0:], 3)
	binary.LittleEndian.PutUint16(order[2:], 1)
	events = append(events, NewVariableEvent(c, 1, tcglog.EventTypeEFIVariableBoot,
		efi.VariableDescriptor{Name: "BootOrder", GUID: efi.GlobalVariable}, order[:], opts.BootHashing, opts.Algorithms...))

	for _, pcr := range []tpm2.Handle{0, 1, 2, 3, 4, 5, 6} {
		events = append(events, separator(pcr))
	}

	for _, authority := range opts.Authorities {
		events = append(events, NewVariableEvent(c, 7, tcglog.EventTypeEFIVariableAuthority,
			efi.VariableDescriptor{Name: "db", GUID: efi.ImageSecurityDatabaseGuid}, authority, HashWholeEvent, opts.Algorithms...))
	}
	if len(opts.SbatLevel) > 0 {
		events = append(events, NewVariableEvent(c, 7, tcglog.EventTypeEFIVariableAuthority,
			efi.VariableDescriptor{Name: "SbatLevel", GUID: shimGuid}, opts.SbatLevel, HashWholeEvent, opts.Algorithms...))
	}

	return tcglog.NewLogForTesting(events)
}
