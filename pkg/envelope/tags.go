// Package envelope implements the signed container header: the tag schema,
// the streaming header walk, header assembly with a reserved signature
// position, and the signature binding that makes the containers
// round-trip-verifiable. Payload handling lives in the profile packages
// (sgn, trustlist, enccnf); this package is the single source of truth for
// header tag numbering and nesting.
package envelope

import (
	"fmt"

	"github.com/voipsec/sgntlv/pkg/tlv"
)

// Header tag namespace.
const (
	TagVersion                tlv.Tag = 1
	TagHeaderLength           tlv.Tag = 2
	TagSignerInfo             tlv.Tag = 3 // container
	TagSignerName             tlv.Tag = 4
	TagSerialNumber           tlv.Tag = 5
	TagIssuerName             tlv.Tag = 6
	TagSignatureInfo          tlv.Tag = 7 // container
	TagHashAlgorithm          tlv.Tag = 8
	TagSignatureAlgorithmInfo tlv.Tag = 9 // container
	TagSignatureAlgorithm     tlv.Tag = 10
	TagSignatureModulus       tlv.Tag = 11
	TagSignature              tlv.Tag = 12
	TagPadding                tlv.Tag = 13
	TagFilename               tlv.Tag = 14
	TagTimestamp              tlv.Tag = 15
	TagEncryptionInfo         tlv.Tag = 16 // container
	TagEncryptionIVInfo       tlv.Tag = 17 // container
	TagEncryptionUnknown1     tlv.Tag = 18
	TagEncryptionIV           tlv.Tag = 19
	TagEncryptionPadding      tlv.Tag = 20
	TagEncryptionKeyInfo      tlv.Tag = 21 // container
	TagEncryptionUnknown2     tlv.Tag = 22
	TagEncryptionKeySize      tlv.Tag = 23
	TagEncryptionKeyAlgorithm tlv.Tag = 24
	TagEncryptionKey          tlv.Tag = 25
	TagEncryptionHashAlg      tlv.Tag = 26
	TagEncryptionHash         tlv.Tag = 27
	TagSignerVersion          tlv.Tag = 28
)

// Version is a two-byte major/minor pair, used both for the envelope
// prelude and the trust-list signer version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common versions.
var (
	V10 = Version{Major: 1, Minor: 0}
	V11 = Version{Major: 1, Minor: 1}
)

// String returns the dotted form, e.g. "1.0".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func (v Version) bytes() []byte {
	return []byte{v.Major, v.Minor}
}

// signatureLengths maps the SIGNATURE_MODULUS index to the signature byte
// length it encodes.
var signatureLengths = [4]int{64, 128, 256, 512}

// ModulusIndex returns the SIGNATURE_MODULUS value for a signature byte
// length.
func ModulusIndex(sigLen int) (uint8, error) {
	for i, l := range signatureLengths {
		if l == sigLen {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: signature length %d", ErrUnsupportedAlgorithm, sigLen)
}

// SignatureLengthFromIndex returns the signature byte length encoded by a
// SIGNATURE_MODULUS value.
func SignatureLengthFromIndex(idx uint8) (int, error) {
	if int(idx) >= len(signatureLengths) {
		return 0, fmt.Errorf("%w: signature modulus index %d", ErrUnsupportedAlgorithm, idx)
	}
	return signatureLengths[idx], nil
}

// Span is a half-open byte range within a container file.
type Span struct {
	Start int
	End   int
}

// Empty reports whether the span records no bytes.
func (s Span) Empty() bool {
	return s.End <= s.Start
}
