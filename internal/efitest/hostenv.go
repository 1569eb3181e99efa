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
	"context"
	"errors"

	efi "github.com/canonical/go-efilib"

	internal_efi "github.com/snapcore/efi-rehash/internal/efi"
)

// MockHostEnvironment provides a mock EFI host environment.
type MockHostEnvironment struct {
	Vars MockVars
	Log  *internal_efi.Log
}

// NewMockHostEnvironment returns a new MockHostEnvironment.
func NewMockHostEnvironment(vars MockVars, log *internal_efi.Log) *MockHostEnvironment {
	return &MockHostEnvironment{
		Vars: vars,
		Log:  log}
}

// VarContext implements [github.com/snapcore/efi-rehash/efi.HostEnvironment.VarContext].
func (e *MockHostEnvironment) VarContext(parent context.Context) context.Context {
	return context.WithValue(parent, efi.VarsBackendKey{}, e.Vars)
}

// ReadEventLog implements [github.com/snapcore/efi-rehash/efi.HostEnvironment.ReadEventLog].
func (e *MockHostEnvironment) ReadEventLog() (*internal_efi.Log, error) {
	if e.Log == nil {
		return nil, errors.New("nil log")
	}
	return e.Log, nil
}
