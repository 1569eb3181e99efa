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

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/canonical/go-tpm2"
	"gopkg.in/yaml.v2"

	rehash_efi "github.com/snapcore/efi-rehash/efi"
)

type eventReport struct {
	Index     int    `yaml:"index"`
	PCR       uint32 `yaml:"pcr"`
	Type      string `yaml:"type"`
	Variable  string `yaml:"variable,omitempty"`
	Strategy  string `yaml:"strategy,omitempty"`
	Outcome   string `yaml:"outcome,omitempty"`
	Recorded  string `yaml:"recorded-digest,omitempty"`
	Predicted string `yaml:"predicted-digest,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

type report struct {
	Algorithm string         `yaml:"algorithm"`
	Events    []*eventReport `yaml:"events"`
}

func newReport(alg tpm2.HashAlgorithmId, results []*rehash_efi.LogRehashResult) *report {
	name, err := hashAlg(alg).MarshalFlag()
	if err != nil {
		name = fmt.Sprintf("%v", alg)
	}

	r := &report{Algorithm: name}
	for _, result := range results {
		ev := &eventReport{
			Index: result.Index,
			PCR:   uint32(result.Event.PCRIndex),
			Type:  result.Event.EventType.String()}
		if d, ok := result.Event.Digests[alg]; ok {
			ev.Recorded = fmt.Sprintf("%x", d)
		}

		switch {
		case result.Err != nil:
			ev.Error = result.Err.Error()
		default:
			ev.Variable = result.Result.Variable.FullName()
			ev.Strategy = result.Result.Strategy.String()
			if result.Result.StrategyUndetermined {
				ev.Strategy += " (undetermined)"
			}
			ev.Outcome = result.Result.Outcome.String()
			if len(result.Result.Digest) > 0 {
				ev.Predicted = fmt.Sprintf("%x", result.Result.Digest)
			}
			if result.Result.Reason != nil {
				ev.Reason = result.Result.Reason.Error()
			}
		}

		r.Events = append(r.Events, ev)
	}
	return r
}

func (r *report) failures() (n int) {
	for _, ev := range r.Events {
		if ev.Error != "" {
			n++
		}
	}
	return n
}

func (r *report) writeYAML(w io.Writer) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (r *report) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "INDEX\tPCR\tVARIABLE\tOUTCOME\t%s DIGEST\n", r.Algorithm)
	for _, ev := range r.Events {
		switch {
		case ev.Error != "":
			fmt.Fprintf(tw, "%d\t%d\t-\terror\t%s\n", ev.Index, ev.PCR, ev.Error)
		case ev.Predicted == "":
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", ev.Index, ev.PCR, ev.Variable, ev.Outcome, ev.Reason)
		default:
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", ev.Index, ev.PCR, ev.Variable, ev.Outcome, ev.Predicted)
		}
	}
	return tw.Flush()
}
