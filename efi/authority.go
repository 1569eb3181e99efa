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
	"fmt"

	efi "github.com/canonical/go-efilib"
	"github.com/snapcore/snapd/logger"
	"golang.org/x/xerrors"
)

const (
	dbSource             = "db"
	mokListSource        = "MokList"
	shimVendorCertSource = "shim-vendor-cert"
)

// authoritySources maps the names recorded in EV_EFI_VARIABLE_AUTHORITY events to
// the signature database that the recorded authority belongs to.
var authoritySources = map[string]string{
	shimName:          shimVendorCertSource,
	Db.Name:           dbSource,
	shimMokListRTName: mokListSource,
}

// AuthoritySource returns the name of the signature database associated with the
// supplied EV_EFI_VARIABLE_AUTHORITY variable name. It returns false if the variable
// is not a signature database, in which case the event records the variable's value.
func AuthoritySource(name string) (source string, ok bool) {
	source, ok = authoritySources[name]
	return source, ok
}

// AuthorityRecordStatus describes the result of resolving the content of an
// EV_EFI_VARIABLE_AUTHORITY event.
type AuthorityRecordStatus int

const (
	// AuthorityRecordFound indicates that the content was found.
	AuthorityRecordFound AuthorityRecordStatus = iota + 1

	// AuthorityRecordNotFound indicates that no content exists, either because
	// no database entry authenticates the next stage image or because the
	// variable does not exist.
	AuthorityRecordNotFound

	// AuthorityRecordInputAbsent indicates that no next stage image was
	// supplied, so the authority cannot be determined. This is the case for
	// images such as option ROM drivers that aren't loaded from a file.
	AuthorityRecordInputAbsent
)

func (s AuthorityRecordStatus) String() string {
	switch s {
	case AuthorityRecordFound:
		return "found"
	case AuthorityRecordNotFound:
		return "not-found"
	case AuthorityRecordInputAbsent:
		return "input-absent"
	default:
		return fmt.Sprintf("AuthorityRecordStatus(%d)", int(s))
	}
}

// AuthorityRecordResult is the result of resolving the content of an
// EV_EFI_VARIABLE_AUTHORITY event.
type AuthorityRecordResult struct {
	Status AuthorityRecordStatus

	// Source is the signature database that was searched, or the full name
	// of the variable that was read.
	Source string

	// Data is the content that would be measured. It is only set when Status
	// is AuthorityRecordFound.
	Data []byte

	// Reason is set when the content of a variable that isn't a signature
	// database could not be read.
	Reason error
}

// readRuntimeVariable reads the current value of the variable that backs the supplied
// event, using the supplied variable context.
func readRuntimeVariable(ctx context.Context, varEv *VariableEvent) ([]byte, error) {
	desc := varEv.runtimeDescriptor()
	data, _, err := efi.ReadVariable(ctx, desc.Name, desc.GUID)
	if err != nil {
		logger.Noticef("cannot read EFI variable %s: %v", varEv.FullName(), err)
		return nil, err
	}
	return data, nil
}

// readSignatureDBVariable reads and decodes the signature database stored in the
// specified variable. A variable that doesn't exist is an empty database.
func readSignatureDBVariable(ctx context.Context, desc efi.VariableDescriptor) (efi.SignatureDatabase, error) {
	data, _, err := efi.ReadVariable(ctx, desc.Name, desc.GUID)
	switch {
	case err == efi.ErrVarNotExist:
		return nil, nil
	case err != nil:
		return nil, xerrors.Errorf("cannot read %s: %w", fullVariableName(desc), err)
	}

	db, err := efi.ReadSignatureDatabase(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Errorf("cannot decode %s: %w", fullVariableName(desc), err)
	}
	return db, nil
}

// readShimVendorDB returns the contents of the .vendor_cert section of the supplied
// shim image.
func readShimVendorDB(image Image) (efi.SignatureDatabase, shimVendorCertFormat, error) {
	if image == nil {
		return nil, 0, errNoShimImage
	}

	pe, err := openPeImage(image)
	if err != nil {
		return nil, 0, xerrors.Errorf("cannot open shim image: %w", err)
	}
	defer pe.Close()

	db, format, err := newShimImageHandle(pe).ReadVendorDB()
	if err != nil {
		return nil, 0, xerrors.Errorf("cannot read vendor DB from %v: %w", image, err)
	}
	return db, format, nil
}

// locateAuthorityRecord searches the named signature database for the entry that
// authenticates the next stage image with the supplied signature, and returns the
// bytes that are measured for it. It returns nil if there is no such entry.
func locateAuthorityRecord(ctx context.Context, rc *RehashContext, varEv *VariableEvent, source string, sig *efi.WinCertificateAuthenticode) ([]byte, error) {
	var (
		contents efi.SignatureDatabase
		format   shimVendorCertFormat
		err      error
	)
	switch source {
	case dbSource:
		contents, err = readSignatureDBVariable(ctx, Db)
	case mokListSource:
		contents, err = readSignatureDBVariable(ctx, MokListRT)
	case shimVendorCertSource:
		contents, format, err = readShimVendorDB(rc.ShimImage)
	default:
		panic("unhandled signature database " + source)
	}
	if err != nil {
		return nil, err
	}

	esd, err := determineAuthority(&secureBootDB{Name: source, Contents: contents}, sig, rc.NextStageImage)
	if err != nil {
		return nil, err
	}

	if esd == nil && source == mokListSource && rc.ShimImage != nil {
		// Some versions of shim identify the built-in vendor certificate as MokListRT,
		// with the shim GUID as the signature owner.
		vendorDb, vendorFormat, err := readShimVendorDB(rc.ShimImage)
		if err != nil {
			logger.Debugf("cannot read shim vendor DB: %v", err)
		} else if vendorFormat == shimVendorCertIsX509 {
			esd, err = determineAuthority(&secureBootDB{Name: shimVendorCertSource, Contents: vendorDb}, sig, rc.NextStageImage)
			if err != nil {
				return nil, err
			}
			if esd != nil {
				esd = &efi.SignatureData{Owner: shimGuid, Data: esd.Data}
			}
		}
	}

	if esd == nil {
		return nil, nil
	}

	// Shim measures its built-in certificate on its own.
	if varEv.Name == shimName && format == shimVendorCertIsX509 {
		return esd.Data, nil
	}

	w := new(bytes.Buffer)
	if err := esd.Write(w); err != nil {
		return nil, xerrors.Errorf("cannot encode EFI_SIGNATURE_DATA: %w", err)
	}
	return w.Bytes(), nil
}

// ResolveAuthorityRecord determines the content that would be measured today for the
// supplied EV_EFI_VARIABLE_AUTHORITY event. For variables that are signature databases,
// this is the database entry that authenticates the next stage image supplied in the
// context. For any other variable, it is the current value of the variable.
//
// An error is returned if the signer of the next stage image cannot be determined or if
// a signature database cannot be read.
func ResolveAuthorityRecord(ctx context.Context, rc *RehashContext, varEv *VariableEvent) (*AuthorityRecordResult, error) {
	varCtx := rc.env().VarContext(ctx)

	source, ok := AuthoritySource(varEv.Name)
	if !ok {
		data, err := readRuntimeVariable(varCtx, varEv)
		if err != nil {
			return &AuthorityRecordResult{Status: AuthorityRecordNotFound, Source: varEv.FullName(), Reason: err}, nil
		}
		return &AuthorityRecordResult{Status: AuthorityRecordFound, Source: varEv.FullName(), Data: data}, nil
	}

	if rc.NextStageImage == nil {
		logger.Noticef("cannot verify the signature of a boot service authenticated by %s: it is probably a driver residing in ROM", source)
		return &AuthorityRecordResult{Status: AuthorityRecordInputAbsent, Source: source}, nil
	}

	sig, err := extractSigner(rc.NextStageImage)
	if err != nil {
		return nil, xerrors.Errorf("cannot determine signer of %v: %w", rc.NextStageImage, err)
	}
	logger.Debugf("next stage image %v was signed by %v", rc.NextStageImage, sig.GetSigner().Subject)

	data, err := locateAuthorityRecord(varCtx, rc, varEv, source, sig)
	if err != nil {
		return nil, xerrors.Errorf("cannot locate authority in %s: %w", source, err)
	}
	if data == nil {
		return &AuthorityRecordResult{Status: AuthorityRecordNotFound, Source: source}, nil
	}
	return &AuthorityRecordResult{Status: AuthorityRecordFound, Source: source, Data: data}, nil
}
