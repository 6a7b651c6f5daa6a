package envelope

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/voipsec/sgntlv/pkg/certs"
	"github.com/voipsec/sgntlv/pkg/tlv"
)

// HeaderView is the result of walking an envelope header: decoded field
// values plus the byte spans the signature binder needs.
type HeaderView struct {
	Version      Version
	HeaderLength int

	// SignatureSpan is the framed byte range of the signature element;
	// Signature is its value.
	SignatureSpan Span
	Signature     []byte

	SignerName   string
	IssuerName   string
	SerialNumber []byte

	HashAlgorithm   certs.HashAlgorithm
	SignatureLength int

	Filename  string
	Timestamp uint32

	// SignerVersion is present on trust lists only.
	SignerVersion *Version

	// Encryption is present on encrypted configuration envelopes only.
	Encryption *EncryptionView
}

// EncryptionView holds the decoded encryption header fields of an ENC
// envelope.
type EncryptionView struct {
	IV            []byte
	PadCount      int
	KeyBits       int
	KeyAlgorithm  uint8
	WrappedKey    []byte
	HashAlgorithm certs.HashAlgorithm
	Hash          []byte
}

// Payload returns the bytes following the header.
func (v *HeaderView) Payload(file []byte) []byte {
	if v.HeaderLength >= len(file) {
		return nil
	}
	return file[v.HeaderLength:]
}

// containerTags are entered transparently during the walk: their nested
// elements are iterated as peers of the flat element sequence.
var containerTags = map[tlv.Tag]bool{
	TagSignerInfo:             true,
	TagSignatureInfo:          true,
	TagSignatureAlgorithmInfo: true,
	TagEncryptionInfo:         true,
	TagEncryptionIVInfo:       true,
	TagEncryptionKeyInfo:      true,
}

// ReadPrelude decodes only VERSION and HEADER_LENGTH. It is sufficient for
// operations that never touch keys, such as stripping a payload.
func ReadPrelude(buf []byte) (Version, int, error) {
	ver, err := tlv.DecodeNext(buf, 0)
	if err != nil {
		return Version{}, 0, fmt.Errorf("version: %w", ErrTruncated)
	}
	if ver.Tag != TagVersion {
		return Version{}, 0, fmt.Errorf("%w: expected version tag at offset 0, saw %d", ErrBadTag, ver.Tag)
	}
	if len(ver.Value) != 2 {
		return Version{}, 0, fmt.Errorf("%w: version", ErrBadFieldLength)
	}
	v := Version{Major: ver.Value[0], Minor: ver.Value[1]}

	hl, err := tlv.DecodeNext(buf, ver.Next)
	if err != nil {
		return Version{}, 0, fmt.Errorf("header length: %w", ErrTruncated)
	}
	if hl.Tag != TagHeaderLength {
		return Version{}, 0, fmt.Errorf("%w: expected header length tag at offset %d, saw %d", ErrBadTag, ver.Next, hl.Tag)
	}
	if len(hl.Value) != 2 {
		return Version{}, 0, fmt.Errorf("%w: header length", ErrBadFieldLength)
	}
	return v, int(binary.BigEndian.Uint16(hl.Value)), nil
}

// WalkHeader decodes an envelope header into a HeaderView. When out is
// non-nil each recognized field is printed as it is decoded, so that a
// structural failure leaves everything decoded so far on the stream.
func WalkHeader(buf []byte, out io.Writer) (*HeaderView, error) {
	p := func(format string, args ...any) {
		if out != nil {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}

	version, headerLen, err := ReadPrelude(buf)
	if err != nil {
		return nil, err
	}
	p("Version: %s", version)
	p("Header Length: %d", headerLen)
	if headerLen > len(buf) {
		return nil, fmt.Errorf("%w: header length %d exceeds file size %d", ErrTruncated, headerLen, len(buf))
	}

	view := &HeaderView{Version: version, HeaderLength: headerLen}
	head := buf[:headerLen]

	// Skip the prelude; ReadPrelude already proved these two decode.
	first, _ := tlv.DecodeNext(buf, 0)
	second, _ := tlv.DecodeNext(buf, first.Next)

	var enc EncryptionView
	sawEncryption := false

	for off := second.Next; off < headerLen; {
		e, err := tlv.DecodeNext(head, off)
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", off, err)
		}

		if containerTags[e.Tag] {
			// Descend transparently.
			off = e.ValueStart
			continue
		}
		off = e.Next

		switch e.Tag {
		case TagPadding:

		case TagSignature:
			if e.Next > headerLen {
				return nil, ErrSignatureOutsideHeader
			}
			view.SignatureSpan = Span{Start: e.Start, End: e.Next}
			view.Signature = e.Value
			p("Signature: %d bytes", len(e.Value))

		case TagSignerName:
			view.SignerName = cString(e.Value)
			p("Signer Name: %s", view.SignerName)

		case TagIssuerName:
			view.IssuerName = cString(e.Value)
			p("Issuer Name: %s", view.IssuerName)

		case TagSerialNumber:
			view.SerialNumber = e.Value
			p("Serial Number: %x", e.Value)

		case TagHashAlgorithm:
			if len(e.Value) != 1 {
				return nil, fmt.Errorf("%w: hash algorithm", ErrBadFieldLength)
			}
			h := certs.HashAlgorithm(e.Value[0])
			if !h.Valid() {
				return nil, fmt.Errorf("%w: hash algorithm %d", ErrUnsupportedAlgorithm, e.Value[0])
			}
			view.HashAlgorithm = h
			p("Digest Algorithm: %s", h)

		case TagSignatureAlgorithm:
			// Read and ignored.

		case TagSignatureModulus:
			if len(e.Value) != 1 {
				return nil, fmt.Errorf("%w: signature modulus", ErrBadFieldLength)
			}
			sigLen, err := SignatureLengthFromIndex(e.Value[0])
			if err != nil {
				return nil, err
			}
			view.SignatureLength = sigLen

		case TagFilename:
			view.Filename = cString(e.Value)
			p("Filename: %s", view.Filename)

		case TagTimestamp:
			if len(e.Value) != 4 {
				return nil, fmt.Errorf("%w: timestamp", ErrBadFieldLength)
			}
			view.Timestamp = binary.BigEndian.Uint32(e.Value)
			p("Timestamp: %s", time.Unix(int64(view.Timestamp), 0).UTC().Format("2006-01-02 15:04:05"))

		case TagSignerVersion:
			if len(e.Value) != 2 {
				return nil, fmt.Errorf("%w: signer version", ErrBadFieldLength)
			}
			sv := Version{Major: e.Value[0], Minor: e.Value[1]}
			view.SignerVersion = &sv
			p("Signer Version: %s", sv)

		case TagEncryptionUnknown1, TagEncryptionUnknown2:
			// Reserved bytes, read and ignored.
			sawEncryption = true

		case TagEncryptionIV:
			enc.IV = e.Value
			sawEncryption = true
			p("Encryption IV: %x", e.Value)

		case TagEncryptionPadding:
			if len(e.Value) != 2 {
				return nil, fmt.Errorf("%w: encryption padding", ErrBadFieldLength)
			}
			enc.PadCount = int(binary.BigEndian.Uint16(e.Value))
			sawEncryption = true
			p("Encryption Padding: %d", enc.PadCount)

		case TagEncryptionKeySize:
			if len(e.Value) != 2 {
				return nil, fmt.Errorf("%w: encryption key size", ErrBadFieldLength)
			}
			enc.KeyBits = int(binary.BigEndian.Uint16(e.Value))
			sawEncryption = true
			p("Encryption Key Size: %d", enc.KeyBits)

		case TagEncryptionKeyAlgorithm:
			if len(e.Value) != 1 {
				return nil, fmt.Errorf("%w: encryption key algorithm", ErrBadFieldLength)
			}
			enc.KeyAlgorithm = e.Value[0]
			sawEncryption = true

		case TagEncryptionKey:
			enc.WrappedKey = e.Value
			sawEncryption = true
			p("Encryption Key: %d bytes", len(e.Value))

		case TagEncryptionHashAlg:
			if len(e.Value) != 1 {
				return nil, fmt.Errorf("%w: encryption hash algorithm", ErrBadFieldLength)
			}
			h := certs.HashAlgorithm(e.Value[0])
			if !h.Valid() {
				return nil, fmt.Errorf("%w: encryption hash algorithm %d", ErrUnsupportedAlgorithm, e.Value[0])
			}
			enc.HashAlgorithm = h
			sawEncryption = true
			p("Encryption Hash Algorithm: %s", h)

		case TagEncryptionHash:
			enc.Hash = e.Value
			sawEncryption = true
			p("Encryption Hash: %x", e.Value)

		default:
			return nil, fmt.Errorf("%w: tag %d at offset %d", ErrUnknownTag, e.Tag, e.Start)
		}
	}

	if sawEncryption {
		view.Encryption = &enc
	}
	return view, nil
}

// cString trims the trailing NUL of a string field.
func cString(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b)
}
