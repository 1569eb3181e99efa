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
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bsiegert/ranges"
	"github.com/canonical/go-tpm2"
	"github.com/canonical/tcglog-parser"
	"github.com/jessevdk/go-flags"
	"github.com/snapcore/snapd/logger"
	"github.com/snapcore/snapd/snap/snapdir"
	"github.com/snapcore/snapd/snap/squashfs"

	rehash_efi "github.com/snapcore/efi-rehash/efi"
)

type pcrRange []tpm2.Handle

func (r pcrRange) MarshalFlag() (string, error) {
	var s []string
	for _, p := range r {
		s = append(s, strconv.FormatUint(uint64(p), 10))
	}
	return strings.Join(s, ","), nil
}

func (r *pcrRange) UnmarshalFlag(value string) error {
	i, err := ranges.Parse(value)
	if err != nil {
		return err
	}
	for _, p := range i {
		if p < 0 || p > 23 {
			return fmt.Errorf("invalid PCR %d", p)
		}
		*r = append(*r, tpm2.Handle(p))
	}
	return nil
}

type hashAlg tpm2.HashAlgorithmId

func (a hashAlg) MarshalFlag() (string, error) {
	switch tpm2.HashAlgorithmId(a) {
	case tpm2.HashAlgorithmSHA1:
		return "sha1", nil
	case tpm2.HashAlgorithmSHA256:
		return "sha256", nil
	case tpm2.HashAlgorithmSHA384:
		return "sha384", nil
	case tpm2.HashAlgorithmSHA512:
		return "sha512", nil
	default:
		return "", fmt.Errorf("unsupported algorithm %v", tpm2.HashAlgorithmId(a))
	}
}

func (a *hashAlg) UnmarshalFlag(value string) error {
	switch strings.ToLower(value) {
	case "sha1":
		*a = hashAlg(tpm2.HashAlgorithmSHA1)
	case "sha256":
		*a = hashAlg(tpm2.HashAlgorithmSHA256)
	case "sha384":
		*a = hashAlg(tpm2.HashAlgorithmSHA384)
	case "sha512":
		*a = hashAlg(tpm2.HashAlgorithmSHA512)
	default:
		return fmt.Errorf("unsupported algorithm %q", value)
	}
	return nil
}

type options struct {
	Verbose bool `short:"v" long:"verbose" description:"Print debug messages"`

	Alg  hashAlg  `long:"alg" description:"The PCR bank to predict digests for (sha1, sha256, sha384 or sha512)" default:"sha256"`
	PCRs pcrRange `long:"pcrs" description:"Which PCRs to predict EFI variable events for" default:"1,7"`

	BootChain []string `long:"next-stage" description:"An image loaded by an EV_EFI_BOOT_SERVICES_APPLICATION event, used to determine the authority recorded before it is loaded. Repeat in boot order for each application in the log. Images in snaps are specified with squashfs:<snap>(<path>) or snapdir:<dir>(<path>)"`
	ShimImage string   `long:"shim" description:"The shim image used to boot, using the same syntax as --next-stage"`

	Log    string `long:"log" description:"Path to a TCG event log in binary form, instead of the one for the default TPM"`
	Output string `long:"output" description:"The output format" choice:"text" choice:"yaml" default:"text"`
}

var opts options

// parseImage returns an image for the supplied command line argument.
func parseImage(arg string) (rehash_efi.Image, error) {
	for _, prefix := range []string{"squashfs:", "snapdir:"} {
		if !strings.HasPrefix(arg, prefix) {
			continue
		}

		spec := strings.TrimPrefix(arg, prefix)
		open := strings.Index(spec, "(")
		if open < 1 || !strings.HasSuffix(spec, ")") || open == len(spec)-2 {
			return nil, fmt.Errorf("invalid image %q: expected %s<snap>(<path>)", arg, prefix)
		}
		snapPath := spec[:open]
		filePath := spec[open+1 : len(spec)-1]

		if prefix == "squashfs:" {
			return rehash_efi.NewSnapFileImage(squashfs.New(snapPath), filePath), nil
		}
		return rehash_efi.NewSnapFileImage(snapdir.New(snapPath), filePath), nil
	}

	if arg == "" {
		return nil, errors.New("empty image path")
	}
	return rehash_efi.NewFileImage(arg), nil
}

func readLog(path string) (*rehash_efi.Log, error) {
	if path == "" {
		return rehash_efi.DefaultEnv.ReadEventLog()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return rehash_efi.ReadLog(f, &tcglog.LogOptions{})
}

func run() error {
	if _, err := flags.Parse(&opts); err != nil {
		return err
	}

	if opts.Verbose {
		os.Setenv("SNAPD_DEBUG", "1")
	}
	if err := logger.SimpleSetup(); err != nil {
		return fmt.Errorf("cannot set up logging: %w", err)
	}

	rc := &rehash_efi.RehashContext{Algorithm: tpm2.HashAlgorithmId(opts.Alg)}
	for _, arg := range opts.BootChain {
		image, err := parseImage(arg)
		if err != nil {
			return err
		}
		rc.BootChain = append(rc.BootChain, image)
	}
	if opts.ShimImage != "" {
		image, err := parseImage(opts.ShimImage)
		if err != nil {
			return err
		}
		rc.ShimImage = image
	}

	log, err := readLog(opts.Log)
	if err != nil {
		return fmt.Errorf("cannot read TCG log: %w", err)
	}

	results := rehash_efi.RehashLog(context.Background(), rc, log, opts.PCRs...)
	report := newReport(rc.Algorithm, results)

	switch opts.Output {
	case "yaml":
		err = report.writeYAML(os.Stdout)
	default:
		err = report.writeText(os.Stdout)
	}
	if err != nil {
		return err
	}

	if n := report.failures(); n > 0 {
		return fmt.Errorf("%d of %d events could not be predicted", n, len(report.Events))
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		switch e := err.(type) {
		case *flags.Error:
			// flags already prints this
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
