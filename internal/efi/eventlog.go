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

	"github.com/canonical/go-tpm2"
	"github.com/canonical/tcglog-parser"
	"golang.org/x/xerrors"
)

// LogEvent is an event from a TCG event log. RawData is the event data exactly as it
// was recorded in the log. For events that tcglog decodes, this may differ from the
// bytes that Data serializes to.
type LogEvent struct {
	*tcglog.Event
	RawData []byte
}

// Log is a TCG event log in which every event retains its recorded event data.
type Log struct {
	Spec       tcglog.Spec
	Algorithms tcglog.AlgorithmIdList
	Events     []*LogEvent
}

func skipBytes(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// readRawEventData reads the next event from r and returns its event data.
func readRawEventData(r io.Reader, cryptoAgile bool, digestSizes []tcglog.EFISpecIdEventAlgorithmSize) ([]byte, error) {
	var hdr struct {
		PCRIndex  tpm2.Handle
		EventType tcglog.EventType
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, xerrors.Errorf("cannot read header: %w", err)
	}

	if !cryptoAgile {
		if err := skipBytes(r, int64(tpm2.HashAlgorithmSHA1.Size())); err != nil {
			return nil, xerrors.Errorf("cannot read digest: %w", err)
		}
	} else {
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, xerrors.Errorf("cannot read digest count: %w", err)
		}
		for i := uint32(0); i < count; i++ {
			var alg tpm2.HashAlgorithmId
			if err := binary.Read(r, binary.LittleEndian, &alg); err != nil {
				return nil, xerrors.Errorf("cannot read digest algorithm: %w", err)
			}
			size := -1
			for _, s := range digestSizes {
				if s.AlgorithmId == alg {
					size = int(s.DigestSize)
					break
				}
			}
			if size < 0 {
				return nil, fmt.Errorf("unrecognized digest algorithm %v", alg)
			}
			if err := skipBytes(r, int64(size)); err != nil {
				return nil, xerrors.Errorf("cannot read %v digest: %w", alg, err)
			}
		}
	}

	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, xerrors.Errorf("cannot read event size: %w", err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, xerrors.Errorf("cannot read event data: %w", err)
	}
	return data, nil
}

// ReadLog reads a TCG event log from r using the supplied options. The events are
// decoded by tcglog, and each event also retains the event data as it appears in
// the log so that digests can be computed from the bytes that firmware measured.
func ReadLog(r io.Reader, options *tcglog.LogOptions) (*Log, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	log, err := tcglog.ReadLog(bytes.NewReader(data), options)
	if err != nil {
		return nil, err
	}

	var digestSizes []tcglog.EFISpecIdEventAlgorithmSize
	if len(log.Events) > 0 {
		if d, ok := log.Events[0].Data.(*tcglog.SpecIdEvent03); ok {
			digestSizes = d.DigestSizes
		}
	}

	out := &Log{Spec: log.Spec, Algorithms: log.Algorithms}
	rd := bytes.NewReader(data)
	for i, ev := range log.Events {
		// The first event is always in the SHA-1 only format.
		raw, err := readRawEventData(rd, i > 0 && log.Spec.IsEFI_2(), digestSizes)
		if err != nil {
			return nil, xerrors.Errorf("cannot read event %d: %w", i, err)
		}
		out.Events = append(out.Events, &LogEvent{Event: ev, RawData: raw})
	}
	return out, nil
}
