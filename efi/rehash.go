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
	"context"
	"encoding/hex"
	"fmt"

	"github.com/canonical/go-tpm2"
	"github.com/canonical/tcglog-parser"
	"github.com/snapcore/snapd/logger"
	"golang.org/x/xerrors"
)

// RehashContext contains the parameters used to predict the digests of EFI variable
// events.
type RehashContext struct {
	// Algorithm is the digest algorithm of the PCR bank being predicted.
	Algorithm tpm2.HashAlgorithmId

	// NextStageImage is the image that is loaded after the measurement being
	// predicted. It is used to determine the authority recorded by
	// EV_EFI_VARIABLE_AUTHORITY events, and may be nil if it is not known.
	NextStageImage Image

	// BootChain is the sequence of images loaded by the
	// EV_EFI_BOOT_SERVICES_APPLICATION events in a log, in the order that
	// they were loaded. If it is not empty, RehashLog uses it instead of
	// NextStageImage to select the next stage image for each event.
	BootChain []Image

	// ShimImage is the shim image that is part of the boot chain. It is used
	// to obtain shim's built-in vendor certificate, and may be nil.
	ShimImage Image

	// Env is the host environment from which to read EFI variables. If this is
	// nil, DefaultEnv is used.
	Env HostEnvironment
}

func (rc *RehashContext) env() HostEnvironment {
	if rc.Env == nil {
		return DefaultEnv
	}
	return rc.Env
}

// RehashOutcome describes the result of predicting an EFI variable event.
type RehashOutcome int

const (
	// RehashDigested indicates that a new digest was computed from the current
	// content.
	RehashDigested RehashOutcome = iota + 1

	// RehashUnchanged indicates that the content cannot be changed from the
	// running system, so the recorded digest is reused.
	RehashUnchanged

	// RehashContentUnavailable indicates that there is no current content from
	// which to compute a digest.
	RehashContentUnavailable
)

func (o RehashOutcome) String() string {
	switch o {
	case RehashDigested:
		return "digested"
	case RehashUnchanged:
		return "unchanged"
	case RehashContentUnavailable:
		return "content-unavailable"
	default:
		return fmt.Sprintf("RehashOutcome(%d)", int(o))
	}
}

// RehashResult is the result of predicting an EFI variable event.
type RehashResult struct {
	Outcome RehashOutcome

	// Variable is the decoded event data.
	Variable *VariableEvent

	// Strategy is the hashing convention that the firmware used for this event.
	Strategy HashStrategy

	// StrategyUndetermined is set when the recorded digest matched neither
	// convention, in which case Strategy is HashStrategyDataOnly.
	StrategyUndetermined bool

	// Digest is the predicted digest. It is set for RehashDigested and
	// RehashUnchanged.
	Digest tpm2.Digest

	// Reason describes why the content is unavailable, if known.
	Reason error
}

// RehashEvent computes the digest that the supplied EFI variable event would have if
// it were measured now, using the current value of the variable. For
// EV_EFI_VARIABLE_AUTHORITY events that record an entry from a signature database, the
// current entry that authenticates the next stage image is used instead.
//
// The same hashing convention that the firmware used to produce the recorded digest is
// applied to the new content.
//
// If the content is unavailable, a result with the RehashContentUnavailable outcome is
// returned. An error is returned if the event cannot be decoded, if it has no digest for
// the selected algorithm, or if the authority for the next stage image cannot be
// determined.
func RehashEvent(ctx context.Context, rc *RehashContext, ev *LogEvent) (*RehashResult, error) {
	if !IsVariableEvent(ev.EventType) {
		return nil, ErrNotVariableEvent
	}
	if !rc.Algorithm.Available() {
		return nil, UnsupportedAlgorithmError{rc.Algorithm}
	}

	varEv, err := DecodeVariableEvent(bytes.NewReader(ev.RawData))
	if err != nil {
		return nil, err
	}

	strategy, determined, err := DetectHashStrategy(ev, varEv, rc.Algorithm)
	if err != nil {
		return nil, err
	}
	switch {
	case !determined:
		logger.Noticef("cannot determine how firmware hashed %v, assuming only the variable data", varEv)
	case strategy == HashStrategyWholeEvent:
		logger.Debugf("firmware hashed entire event data for %s", varEv.FullName())
	default:
		logger.Debugf("firmware hashed variable data for %s", varEv.FullName())
	}

	result := &RehashResult{
		Variable:             varEv,
		Strategy:             strategy,
		StrategyUndetermined: !determined}

	var content []byte
	if ev.EventType == tcglog.EventTypeEFIVariableAuthority {
		record, err := ResolveAuthorityRecord(ctx, rc, varEv)
		if err != nil {
			return nil, err
		}
		switch record.Status {
		case AuthorityRecordInputAbsent:
			result.Outcome = RehashUnchanged
			result.Digest = ev.Digests[rc.Algorithm]
			return result, nil
		case AuthorityRecordNotFound:
			result.Outcome = RehashContentUnavailable
			result.Reason = record.Reason
			if result.Reason == nil {
				result.Reason = fmt.Errorf("no entry in %s authenticates %v", record.Source, rc.NextStageImage)
			}
			return result, nil
		}
		content = record.Data
	} else {
		content, err = readRuntimeVariable(rc.env().VarContext(ctx), varEv)
		if err != nil {
			result.Outcome = RehashContentUnavailable
			result.Reason = err
			return result, nil
		}
	}

	if strategy == HashStrategyWholeEvent {
		content, err = varEv.Bytes(content)
		if err != nil {
			return nil, xerrors.Errorf("cannot re-marshal event for %s: %w", varEv.FullName(), err)
		}
		logger.Debugf("re-marshalled event for %s:\n%s", varEv.FullName(), hex.Dump(content))
	}

	result.Outcome = RehashDigested
	result.Digest = computeDigest(rc.Algorithm, content)
	return result, nil
}

// LogRehashResult associates the result of predicting an event with the event in
// the log.
type LogRehashResult struct {
	Index  int
	Event  *LogEvent
	Result *RehashResult
	Err    error
}

// nextStageImages returns the image loaded by the next image load event that follows
// each event in the log. Applications are taken from chain in order. Drivers loaded
// from option ROMs have no image.
func nextStageImages(log *Log, chain []Image) []Image {
	n := 0
	for _, ev := range log.Events {
		if ev.EventType == tcglog.EventTypeEFIBootServicesApplication {
			n++
		}
	}

	images := make([]Image, len(log.Events))
	var next Image
	for i := len(log.Events) - 1; i >= 0; i-- {
		images[i] = next
		switch log.Events[i].EventType {
		case tcglog.EventTypeEFIBootServicesApplication:
			n--
			next = nil
			if n < len(chain) {
				next = chain[n]
			}
		case tcglog.EventTypeEFIBootServicesDriver, tcglog.EventTypeEFIRuntimeServicesDriver:
			next = nil
		}
	}
	return images
}

// RehashLog predicts the digest of every EFI variable event in the supplied log that
// is measured to one of the specified PCRs. Failures are recorded per event and don't
// prevent the remaining events from being predicted.
//
// Firmware and shim measure EV_EFI_VARIABLE_AUTHORITY events before loading the image
// that they authenticate. If rc.BootChain is set, the next stage image for each event
// is the image loaded by the next EV_EFI_BOOT_SERVICES_APPLICATION event, and an event
// that precedes a driver load or has no corresponding entry in rc.BootChain has no
// next stage image. Otherwise, rc.NextStageImage is used for every event.
func RehashLog(ctx context.Context, rc *RehashContext, log *Log, pcrs ...tpm2.Handle) []*LogRehashResult {
	flags := makePcrFlags(pcrs...)

	var images []Image
	if len(rc.BootChain) > 0 {
		images = nextStageImages(log, rc.BootChain)
	}

	var results []*LogRehashResult
	for i, ev := range log.Events {
		if !flags.Contains(ev.PCRIndex) || !IsVariableEvent(ev.EventType) {
			continue
		}

		evRc := *rc
		if images != nil {
			evRc.NextStageImage = images[i]
		}
		result, err := RehashEvent(ctx, &evRc, ev)
		results = append(results, &LogRehashResult{Index: i, Event: ev, Result: result, Err: err})
	}
	return results
}
