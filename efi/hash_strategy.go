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
	"fmt"

	"github.com/canonical/go-tpm2"
)

// HashStrategy describes which bytes a firmware implementation hashes when it
// measures an EFI variable.
type HashStrategy int

const (
	// HashStrategyWholeEvent indicates that the digest covers the entire
	// UEFI_VARIABLE_DATA structure.
	HashStrategyWholeEvent HashStrategy = iota + 1

	// HashStrategyDataOnly indicates that the digest only covers the variable
	// data.
	HashStrategyDataOnly
)

func (s HashStrategy) String() string {
	switch s {
	case HashStrategyWholeEvent:
		return "whole-event"
	case HashStrategyDataOnly:
		return "data-only"
	default:
		return fmt.Sprintf("HashStrategy(%d)", int(s))
	}
}

func computeDigest(alg tpm2.HashAlgorithmId, data []byte) tpm2.Digest {
	h := alg.NewHash()
	h.Write(data)
	return h.Sum(nil)
}

// DetectHashStrategy determines which bytes were hashed to produce the recorded
// digest of the supplied event for the specified algorithm, by recomputing the
// digest from the event data as it was recorded and from the decoded variable data.
// If neither matches, it returns HashStrategyDataOnly with determined set to false.
// It returns ErrNoRecordedDigest if the event has no digest for the algorithm.
func DetectHashStrategy(ev *LogEvent, varEv *VariableEvent, alg tpm2.HashAlgorithmId) (strategy HashStrategy, determined bool, err error) {
	if !alg.Available() {
		return 0, false, UnsupportedAlgorithmError{alg}
	}
	recorded, ok := ev.Digests[alg]
	if !ok {
		return 0, false, ErrNoRecordedDigest
	}

	if bytes.Equal(computeDigest(alg, ev.RawData), recorded) {
		return HashStrategyWholeEvent, true, nil
	}
	if bytes.Equal(computeDigest(alg, varEv.Data), recorded) {
		return HashStrategyDataOnly, true, nil
	}
	return HashStrategyDataOnly, false, nil
}
