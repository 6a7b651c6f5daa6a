package certs

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
)

// Identity is a certificate with its optional private key. A single PEM
// file may carry both.
type Identity struct {
	Certificate *x509.Certificate
	PrivateKey  any // *rsa.PrivateKey or *ecdsa.PrivateKey, nil when absent
}

// LoadIdentity reads a PEM file containing a certificate and, optionally,
// its private key.
func LoadIdentity(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	id, err := ParseIdentity(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return id, nil
}

// ParseIdentity parses PEM bytes into a certificate plus optional key.
func ParseIdentity(data []byte) (*Identity, error) {
	id := &Identity{}
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			if id.Certificate != nil {
				continue
			}
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			id.Certificate = cert
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			id.PrivateKey = key
		case "EC PRIVATE KEY":
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			id.PrivateKey = key
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			switch k := key.(type) {
			case *rsa.PrivateKey, *ecdsa.PrivateKey:
				id.PrivateKey = k
			default:
				return nil, ErrUnsupportedKeyType
			}
		}
	}
	if id.Certificate == nil {
		return nil, ErrInvalidCertificate
	}
	return id, nil
}

// RSAKey returns the identity's RSA private key.
func (id *Identity) RSAKey() (*rsa.PrivateKey, error) {
	if id.PrivateKey == nil {
		return nil, ErrNoPrivateKey
	}
	key, ok := id.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKeyType
	}
	return key, nil
}

// SubjectString returns the RFC 4514 serialization of the certificate
// subject. Attributes are comma-joined, most specific first; these exact
// bytes are covered by envelope signatures, so the joiner is a
// compatibility commitment.
func SubjectString(cert *x509.Certificate) string {
	return cert.Subject.String()
}

// IssuerString returns the RFC 4514 serialization of the certificate issuer.
func IssuerString(cert *x509.Certificate) string {
	return cert.Issuer.String()
}

// SerialBytes returns the certificate serial as a minimum-width unsigned
// big-endian integer. A zero serial encodes as a single zero byte.
func SerialBytes(cert *x509.Certificate) []byte {
	return serialBytes(cert.SerialNumber)
}

func serialBytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) == 0 {
		return []byte{0}
	}
	return b
}
