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
	"crypto"
	"crypto/rand"
	_ "crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/binary"

	efi "github.com/canonical/go-efilib"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
	. "gopkg.in/check.v1"
)

var (
	oidContentType       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidMessageDigest     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	oidSignedData        = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	oidSHA256            = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidRSAEncryption     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidSpcIndirectData   = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 1, 4}
	oidSpcPeImageDataObj = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 1, 15}
)

const winCertTypePKCSSignedData = 0x0002

func addAlgorithmIdentifier(b *cryptobyte.Builder, oid asn1.ObjectIdentifier) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		b.AddASN1NULL()
	})
}

// spcIndirectData returns the SpcIndirectDataContent that binds a signature to the
// Authenticode digest of a PE image.
func spcIndirectData(c *C, imageDigest []byte) []byte {
	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // data
			b.AddASN1ObjectIdentifier(oidSpcPeImageDataObj)
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SpcPeImageData
				b.AddASN1BitString([]byte{0})
				b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
					b.AddASN1(cryptobyte_asn1.Tag(2).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
						b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific(), func(b *cryptobyte.Builder) {
							name := new(bytes.Buffer)
							binary.Write(name, binary.BigEndian, efi.ConvertUTF8ToUCS2("<<<Obsolete>>>"))
							b.AddBytes(name.Bytes())
						})
					})
				})
			})
		})
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // messageDigest
			addAlgorithmIdentifier(b, oidSHA256)
			b.AddASN1OctetString(imageDigest)
		})
	})
	content, err := b.Bytes()
	c.Assert(err, IsNil)
	return content
}

// authenticatedAttributes returns the contents of the SET of signed attributes for
// the supplied content. The signature is computed over the SET encoding.
func authenticatedAttributes(c *C, content []byte) (set, inner []byte) {
	contentDigest := crypto.SHA256.New()
	contentDigest.Write(content)

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidContentType)
			b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1ObjectIdentifier(oidSpcIndirectData)
			})
		})
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidMessageDigest)
			b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
				b.AddASN1OctetString(contentDigest.Sum(nil))
			})
		})
	})
	set, err := b.Bytes()
	c.Assert(err, IsNil)

	s := cryptobyte.String(set)
	var attrs cryptobyte.String
	c.Assert(s.ReadASN1(&attrs, cryptobyte_asn1.SET), Equals, true)
	return set, attrs
}

// NewAuthenticodeSignature returns a detached PKCS#7 Authenticode signature for a PE
// image with the supplied SHA-256 digest, signed with key. The signer certificate
// and any additional certificates are embedded in the signature.
func NewAuthenticodeSignature(c *C, key crypto.Signer, signer *x509.Certificate, imageDigest []byte, certs ...*x509.Certificate) []byte {
	content := spcIndirectData(c, imageDigest)
	set, attrs := authenticatedAttributes(c, content)

	h := crypto.SHA256.New()
	h.Write(set)
	sig, err := key.Sign(rand.Reader, h.Sum(nil), crypto.SHA256)
	c.Assert(err, IsNil)

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ContentInfo
		b.AddASN1ObjectIdentifier(oidSignedData)
		b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SignedData
				b.AddASN1Int64(1)
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
					addAlgorithmIdentifier(b, oidSHA256)
				})
				b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
					b.AddASN1ObjectIdentifier(oidSpcIndirectData)
					b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
						b.AddBytes(content)
					})
				})
				b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) { // certificates
					b.AddBytes(signer.Raw)
					for _, cert := range certs {
						b.AddBytes(cert.Raw)
					}
				})
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) { // signerInfos
					b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
						b.AddASN1Int64(1)
						b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
							b.AddBytes(signer.RawIssuer)
							b.AddASN1BigInt(signer.SerialNumber)
						})
						addAlgorithmIdentifier(b, oidSHA256)
						b.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(b *cryptobyte.Builder) {
							b.AddBytes(attrs)
						})
						addAlgorithmIdentifier(b, oidRSAEncryption)
						b.AddASN1OctetString(sig)
					})
				})
			})
		})
	})
	out, err := b.Bytes()
	c.Assert(err, IsNil)
	return out
}

// NewSecureBootSignature wraps a detached Authenticode signature in a WIN_CERTIFICATE
// header, as it appears in the security directory of a signed PE image, and returns
// it decoded.
func NewSecureBootSignature(c *C, der []byte) *efi.WinCertificateAuthenticode {
	hdr := struct {
		Length          uint32
		Revision        uint16
		CertificateType uint16
	}{
		Revision:        0x0200,
		CertificateType: winCertTypePKCSSignedData,
	}
	hdr.Length = uint32(binary.Size(hdr) + len(der))

	w := new(bytes.Buffer)
	c.Assert(binary.Write(w, binary.LittleEndian, &hdr), IsNil)
	w.Write(der)

	cert, err := efi.ReadWinCertificate(w)
	c.Assert(err, IsNil)
	sig, ok := cert.(*efi.WinCertificateAuthenticode)
	c.Assert(ok, Equals, true)
	return sig
}
