// Package certs provides the certificate and cryptographic operations the
// envelope containers depend on: PEM identity loading, RFC 4514 name
// serialization, public-key material export, PKCS#1 v1.5 signatures and key
// wrap, AES-CBC, and hash digests addressed by their wire identifiers.
package certs

import (
	"crypto"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
)

// HashAlgorithm is the one-byte hash identifier carried in envelope headers.
type HashAlgorithm uint8

const (
	HashSHA1   HashAlgorithm = 1
	HashSHA256 HashAlgorithm = 2
	HashSHA512 HashAlgorithm = 3
)

// String returns the digest name used in parse output.
func (h HashAlgorithm) String() string {
	switch h {
	case HashSHA1:
		return "SHA1"
	case HashSHA256:
		return "SHA256"
	case HashSHA512:
		return "SHA512"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether the identifier is in the supported set.
func (h HashAlgorithm) Valid() bool {
	switch h {
	case HashSHA1, HashSHA256, HashSHA512:
		return true
	default:
		return false
	}
}

// CryptoHash returns the corresponding crypto.Hash.
func (h HashAlgorithm) CryptoHash() (crypto.Hash, error) {
	switch h {
	case HashSHA1:
		return crypto.SHA1, nil
	case HashSHA256:
		return crypto.SHA256, nil
	case HashSHA512:
		return crypto.SHA512, nil
	default:
		return 0, ErrUnsupportedAlgorithm
	}
}

// Sum computes the digest of data.
func (h HashAlgorithm) Sum(data []byte) ([]byte, error) {
	switch h {
	case HashSHA1:
		d := sha1.Sum(data)
		return d[:], nil
	case HashSHA256:
		d := sha256.Sum256(data)
		return d[:], nil
	case HashSHA512:
		d := sha512.Sum512(data)
		return d[:], nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// Fingerprint computes the digest of the certificate's DER encoding.
func Fingerprint(cert *x509.Certificate, h HashAlgorithm) ([]byte, error) {
	return h.Sum(cert.Raw)
}

// FingerprintMD5 computes the MD5 digest of the certificate's DER encoding.
// Device configuration pointer files identify the recipient certificate by
// this digest.
func FingerprintMD5(cert *x509.Certificate) []byte {
	d := md5.Sum(cert.Raw)
	return d[:]
}
