// Package testcert creates throwaway certificates and keys for package
// tests. Nothing here is safe for production use.
package testcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/voipsec/sgntlv/pkg/certs"
)

// NewRSAIdentity generates a self-signed RSA certificate with its key.
func NewRSAIdentity(t testing.TB, commonName string, bits int, serial int64) *certs.Identity {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	cert := selfSign(t, commonName, serial, key.Public(), key)
	return &certs.Identity{Certificate: cert, PrivateKey: key}
}

// NewECIdentity generates a self-signed P-256 certificate with its key.
func NewECIdentity(t testing.TB, commonName string, serial int64) *certs.Identity {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate EC key: %v", err)
	}
	cert := selfSign(t, commonName, serial, key.Public(), key)
	return &certs.Identity{Certificate: cert, PrivateKey: key}
}

func selfSign(t testing.TB, commonName string, serial int64, pub, priv any) *x509.Certificate {
	t.Helper()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"sgntlv test"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}
