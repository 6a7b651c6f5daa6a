package certs

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// KeyKind discriminates the two public-key encodings the containers carry.
type KeyKind int

const (
	// KeyRSA is a PKCS#1 RSAPublicKey DER structure.
	KeyRSA KeyKind = iota + 1
	// KeyEC is an X9.62 uncompressed point (0x04 || X || Y).
	KeyEC
)

// String returns the key kind name used in parse output.
func (k KeyKind) String() string {
	switch k {
	case KeyRSA:
		return "RSA"
	case KeyEC:
		return "EC"
	default:
		return "UNKNOWN"
	}
}

// KeyMaterial is a public key in its wire encoding.
type KeyMaterial struct {
	Kind KeyKind
	Data []byte
	Bits int
}

// PublicKeyMaterial exports a certificate public key into its wire
// encoding: PKCS#1 DER for RSA, uncompressed point for EC.
func PublicKeyMaterial(pub any) (KeyMaterial, error) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return KeyMaterial{
			Kind: KeyRSA,
			Data: x509.MarshalPKCS1PublicKey(k),
			Bits: k.N.BitLen(),
		}, nil
	case *ecdsa.PublicKey:
		ek, err := k.ECDH()
		if err != nil {
			return KeyMaterial{}, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
		}
		return KeyMaterial{
			Kind: KeyEC,
			Data: ek.Bytes(),
			Bits: k.Curve.Params().BitSize,
		}, nil
	default:
		return KeyMaterial{}, ErrUnsupportedKeyType
	}
}

// ParseKeyMaterial classifies and validates public-key bytes read from a
// container. A DER SEQUENCE is taken as a PKCS#1 RSAPublicKey; a leading
// 0x04 with an odd total length as an uncompressed EC point.
func ParseKeyMaterial(data []byte) (KeyMaterial, error) {
	if len(data) == 0 {
		return KeyMaterial{}, ErrInvalidPublicKey
	}
	switch data[0] {
	case 0x30:
		bits, err := rsaModulusBits(data)
		if err != nil {
			return KeyMaterial{}, err
		}
		return KeyMaterial{Kind: KeyRSA, Data: data, Bits: bits}, nil
	case 0x04:
		if len(data)%2 != 1 {
			return KeyMaterial{}, ErrInvalidPublicKey
		}
		return KeyMaterial{Kind: KeyEC, Data: data, Bits: (len(data) - 1) / 2 * 8}, nil
	default:
		return KeyMaterial{}, ErrInvalidPublicKey
	}
}

// rsaModulusBits reads the modulus size out of a PKCS#1 RSAPublicKey
// structure without round-tripping through crypto/x509 types.
func rsaModulusBits(der []byte) (int, error) {
	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() {
		return 0, ErrInvalidPublicKey
	}
	modulus := new(big.Int)
	exponent := new(big.Int)
	if !seq.ReadASN1Integer(modulus) || !seq.ReadASN1Integer(exponent) || !seq.Empty() {
		return 0, ErrInvalidPublicKey
	}
	if modulus.Sign() <= 0 || exponent.Sign() <= 0 {
		return 0, ErrInvalidPublicKey
	}
	return modulus.BitLen(), nil
}

// RSAPublicKey decodes the material as an RSA public key.
func (k KeyMaterial) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Kind != KeyRSA {
		return nil, ErrUnsupportedKeyType
	}
	pub, err := x509.ParsePKCS1PublicKey(k.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}
