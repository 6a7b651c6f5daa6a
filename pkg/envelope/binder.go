package envelope

import (
	"crypto/rsa"
	"encoding/binary"
	"fmt"

	"github.com/voipsec/sgntlv/pkg/certs"
	"github.com/voipsec/sgntlv/pkg/tlv"
)

// The binder maintains one invariant: the signature is computed over the
// file image with the signature's framed bytes absent, while HEADER_LENGTH
// counts them as present. Splicing the signature in therefore never changes
// any signed byte, and removing it recovers the exact image that was
// signed.

// Sign computes the PKCS#1 v1.5 signature over a signature-absent image.
func Sign(image []byte, key *rsa.PrivateKey, h certs.HashAlgorithm) ([]byte, error) {
	return certs.SignPKCS1v15(key, h, image)
}

// SpliceIn inserts the framed signature element at insertOffset, producing
// the bytes written to disk.
func SpliceIn(image []byte, insertOffset int, sig []byte) ([]byte, error) {
	if insertOffset < 0 || insertOffset > len(image) {
		return nil, fmt.Errorf("%w: splice offset %d", ErrTruncated, insertOffset)
	}
	if len(sig) > 0xFFFF {
		return nil, tlv.ErrLengthOverflow
	}
	out := make([]byte, 0, len(image)+3+len(sig))
	out = append(out, image[:insertOffset]...)
	out = append(out, byte(TagSignature))
	out = binary.BigEndian.AppendUint16(out, uint16(len(sig)))
	out = append(out, sig...)
	out = append(out, image[insertOffset:]...)
	return out, nil
}

// Extract splits a signed file into the signature and the pre-signature
// image used for verification. The image is byte-identical to the buffer
// that was signed.
func Extract(file []byte, view *HeaderView) ([]byte, []byte, error) {
	span := view.SignatureSpan
	if span.Empty() {
		return nil, nil, fmt.Errorf("%w: signature", ErrMissingField)
	}
	if span.Start < 0 || span.End > len(file) {
		return nil, nil, fmt.Errorf("%w: signature span", ErrTruncated)
	}
	if span.End > view.HeaderLength {
		return nil, nil, ErrSignatureOutsideHeader
	}
	image := make([]byte, 0, len(file)-(span.End-span.Start))
	image = append(image, file[:span.Start]...)
	image = append(image, file[span.End:]...)
	return image, file[span.Start+3 : span.End], nil
}

// Verify checks the signature over a signature-absent image.
func Verify(image, sig []byte, pub *rsa.PublicKey, h certs.HashAlgorithm) error {
	return certs.VerifyPKCS1v15(pub, h, image, sig)
}

// BuildSigned assembles a header for the payload, signs the combined image
// with the key, and splices the signature in. The signature length derives
// from the key's modulus size; only 2048- and 4096-bit signing keys are
// accepted, and only SHA-1 and SHA-512 are produced.
func BuildSigned(spec HeaderSpec, payload []byte, key *rsa.PrivateKey) ([]byte, error) {
	switch spec.HashAlgorithm {
	case certs.HashSHA1, certs.HashSHA512:
	default:
		return nil, fmt.Errorf("%w: hash algorithm %d not produced", ErrUnsupportedAlgorithm, spec.HashAlgorithm)
	}
	sigLen := key.Size()
	if sigLen != 256 && sigLen != 512 {
		return nil, fmt.Errorf("%w: %d-bit signing key", ErrUnsupportedAlgorithm, key.N.BitLen())
	}
	spec.SignatureLength = sigLen

	header, err := AssembleHeader(spec)
	if err != nil {
		return nil, err
	}
	image := make([]byte, 0, len(header.Bytes)+len(payload))
	image = append(image, header.Bytes...)
	image = append(image, payload...)

	sig, err := Sign(image, key, spec.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	return SpliceIn(image, header.SignatureInsertOffset, sig)
}

// VerifyFile walks nothing itself; given a parsed view it extracts the
// signature and verifies the remaining image with the public key.
func VerifyFile(file []byte, view *HeaderView, pub *rsa.PublicKey) error {
	image, sig, err := Extract(file, view)
	if err != nil {
		return err
	}
	return Verify(image, sig, pub, view.HashAlgorithm)
}
