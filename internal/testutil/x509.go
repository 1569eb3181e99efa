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

package testutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"

	. "gopkg.in/check.v1"
)

// ParseCertificate parses a certificate from the supplied DER encoded data.
func ParseCertificate(c *C, data []byte) *x509.Certificate {
	cert, err := x509.ParseCertificate(data)
	c.Assert(err, IsNil)
	return cert
}

// NewRSAKey generates a new 2048-bit RSA key.
func NewRSAKey(c *C) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	c.Assert(err, IsNil)
	return key
}

var certSerial int64

func newCertificate(c *C, template, parent *x509.Certificate, pub crypto.PublicKey, parentKey crypto.Signer) *x509.Certificate {
	certSerial++
	template.SerialNumber = big.NewInt(certSerial)
	template.NotBefore = time.Now().Add(-time.Hour)
	template.NotAfter = time.Now().AddDate(10, 0, 0)
	if parent == nil {
		parent = template
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, parentKey)
	c.Assert(err, IsNil)
	return ParseCertificate(c, der)
}

// NewCACertificate creates a self-signed CA certificate with the supplied common
// name and key.
func NewCACertificate(c *C, commonName string, key crypto.Signer) *x509.Certificate {
	return newCertificate(c, &x509.Certificate{
		Subject:               pkix.Name{Organization: []string{"Fake Corporation"}, CommonName: commonName},
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}, nil, key.Public(), key)
}

// NewLeafCertificate creates a code signing certificate with the supplied common name
// and public key, issued by the supplied CA.
func NewLeafCertificate(c *C, commonName string, pub crypto.PublicKey, issuer *x509.Certificate, issuerKey crypto.Signer) *x509.Certificate {
	return newCertificate(c, &x509.Certificate{
		Subject:               pkix.Name{Organization: []string{"Fake Corporation"}, CommonName: commonName},
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageCodeSigning},
		BasicConstraintsValid: true,
	}, issuer, pub, issuerKey)
}
