package envelope

import (
	"fmt"

	"github.com/voipsec/sgntlv/pkg/certs"
	"github.com/voipsec/sgntlv/pkg/tlv"
)

// HeaderSpec describes the header to assemble. SignatureLength is the byte
// length of the signature the signing key will produce; the signature
// itself is spliced in later by the binder.
type HeaderSpec struct {
	Version       Version
	SignerName    string
	IssuerName    string
	SerialNumber  []byte
	HashAlgorithm certs.HashAlgorithm

	SignatureLength int

	Filename  string
	Timestamp uint32

	SignerVersion *Version
	Encryption    *EncryptionSpec
}

// EncryptionSpec describes the encryption header block of an ENC envelope.
type EncryptionSpec struct {
	IV            []byte
	PadCount      int
	KeyBits       int
	WrappedKey    []byte
	HashAlgorithm certs.HashAlgorithm
	Hash          []byte
}

// AssembledHeader is a header image with the signature absent. The
// HEADER_LENGTH field already counts the signature's framed bytes, so the
// header length is identical in the signed and unsigned forms.
type AssembledHeader struct {
	Bytes                 []byte
	SignatureInsertOffset int
	HeaderLength          int
}

// AssembleHeader emits every header element except the signature, records
// where the signature will be spliced in, pads to 4-byte alignment, and
// back-patches HEADER_LENGTH.
func AssembleHeader(spec HeaderSpec) (*AssembledHeader, error) {
	if spec.SignerName == "" || spec.IssuerName == "" || len(spec.SerialNumber) == 0 {
		return nil, fmt.Errorf("%w: signer info", ErrMissingField)
	}
	if spec.Filename == "" {
		return nil, fmt.Errorf("%w: filename", ErrMissingField)
	}
	if !spec.HashAlgorithm.Valid() {
		return nil, fmt.Errorf("%w: hash algorithm %d", ErrUnsupportedAlgorithm, spec.HashAlgorithm)
	}
	modulusIndex, err := ModulusIndex(spec.SignatureLength)
	if err != nil {
		return nil, err
	}

	w := tlv.NewWriter()
	if err := w.Put(TagVersion, spec.Version.bytes()); err != nil {
		return nil, err
	}
	if err := w.PutUint16(TagHeaderLength, 0); err != nil {
		return nil, err
	}
	headerLengthValueOff := w.Len() - 2

	w.BeginContainer(TagSignerInfo)
	if err := w.PutString(TagSignerName, spec.SignerName); err != nil {
		return nil, err
	}
	if err := w.PutString(TagIssuerName, spec.IssuerName); err != nil {
		return nil, err
	}
	if err := w.Put(TagSerialNumber, spec.SerialNumber); err != nil {
		return nil, err
	}
	if err := w.EndContainer(); err != nil {
		return nil, err
	}

	w.BeginContainer(TagSignatureInfo)
	if err := w.PutUint8(TagHashAlgorithm, uint8(spec.HashAlgorithm)); err != nil {
		return nil, err
	}
	w.BeginContainer(TagSignatureAlgorithmInfo)
	if err := w.PutUint8(TagSignatureAlgorithm, 0); err != nil {
		return nil, err
	}
	if err := w.PutUint8(TagSignatureModulus, modulusIndex); err != nil {
		return nil, err
	}
	if err := w.EndContainer(); err != nil {
		return nil, err
	}
	if err := w.EndContainer(); err != nil {
		return nil, err
	}

	insertOffset := w.Len()

	if err := w.PutString(TagFilename, spec.Filename); err != nil {
		return nil, err
	}
	if err := w.PutUint32(TagTimestamp, spec.Timestamp); err != nil {
		return nil, err
	}
	if spec.SignerVersion != nil {
		if err := w.Put(TagSignerVersion, spec.SignerVersion.bytes()); err != nil {
			return nil, err
		}
	}
	if spec.Encryption != nil {
		if err := appendEncryptionInfo(w, spec.Encryption); err != nil {
			return nil, err
		}
	}

	// The signature occupies 3 framing bytes plus its value; HEADER_LENGTH
	// counts them even though they are absent from this image.
	sigFramed := 3 + spec.SignatureLength
	for (w.Len()+sigFramed)%4 != 0 {
		w.PutPadding()
	}
	headerLength := w.Len() + sigFramed
	if headerLength > 0xFFFF {
		return nil, tlv.ErrLengthOverflow
	}
	if err := w.PatchUint16(headerLengthValueOff, uint16(headerLength)); err != nil {
		return nil, err
	}

	return &AssembledHeader{
		Bytes:                 w.Bytes(),
		SignatureInsertOffset: insertOffset,
		HeaderLength:          headerLength,
	}, nil
}

func appendEncryptionInfo(w *tlv.Writer, enc *EncryptionSpec) error {
	w.BeginContainer(TagEncryptionInfo)

	w.BeginContainer(TagEncryptionIVInfo)
	if err := w.PutUint8(TagEncryptionUnknown1, 0); err != nil {
		return err
	}
	if err := w.Put(TagEncryptionIV, enc.IV); err != nil {
		return err
	}
	if err := w.PutUint16(TagEncryptionPadding, uint16(enc.PadCount)); err != nil {
		return err
	}
	if err := w.EndContainer(); err != nil {
		return err
	}

	w.BeginContainer(TagEncryptionKeyInfo)
	if err := w.PutUint8(TagEncryptionUnknown2, 0); err != nil {
		return err
	}
	if err := w.PutUint16(TagEncryptionKeySize, uint16(enc.KeyBits)); err != nil {
		return err
	}
	if err := w.PutUint8(TagEncryptionKeyAlgorithm, 1); err != nil {
		return err
	}
	if err := w.Put(TagEncryptionKey, enc.WrappedKey); err != nil {
		return err
	}
	if err := w.EndContainer(); err != nil {
		return err
	}

	if err := w.EndContainer(); err != nil {
		return err
	}

	if err := w.PutUint8(TagEncryptionHashAlg, uint8(enc.HashAlgorithm)); err != nil {
		return err
	}
	return w.Put(TagEncryptionHash, enc.Hash)
}
