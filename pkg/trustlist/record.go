package trustlist

import (
	"crypto/x509"
	"encoding/binary"
	"fmt"

	"github.com/voipsec/sgntlv/pkg/certs"
	"github.com/voipsec/sgntlv/pkg/tlv"
)

// Record is one decoded certificate record.
type Record struct {
	Role         Role
	SubjectName  string
	IssuerName   string
	SerialNumber []byte
	PublicKey    certs.KeyMaterial
	Signature    []byte

	// Certificate is parsed from the record's full DER when present.
	Certificate *x509.Certificate

	// Recognized but never emitted.
	IPAddress         []byte
	CertificateHash   []byte
	CertHashAlgorithm uint8
}

// appendRecord emits one record for a certificate. The record opens with a
// RECORD_LENGTH element whose 16-bit value is the total record byte count,
// back-patched once the record is complete.
func appendRecord(w *tlv.Writer, role Role, cert *x509.Certificate) error {
	start := w.Len()
	w.Append([]byte{byte(recTagRecordLength), 0, 0})
	lengthOff := start + 1

	if err := w.PutString(recTagSubjectName, certs.SubjectString(cert)); err != nil {
		return err
	}
	if err := w.PutString(recTagIssuerName, certs.IssuerString(cert)); err != nil {
		return err
	}
	if err := w.Put(recTagSerialNumber, certs.SerialBytes(cert)); err != nil {
		return err
	}
	if err := w.PutUint16(recTagRole, uint16(role)); err != nil {
		return err
	}
	km, err := certs.PublicKeyMaterial(cert.PublicKey)
	if err != nil {
		return err
	}
	if err := w.Put(recTagPublicKey, km.Data); err != nil {
		return err
	}
	if err := w.Put(recTagSignature, cert.Signature); err != nil {
		return err
	}
	if err := w.Put(recTagCertificate, cert.Raw); err != nil {
		return err
	}

	total := w.Len() - start
	if total > 0xFFFF {
		return tlv.ErrLengthOverflow
	}
	return w.PatchUint16(lengthOff, uint16(total))
}

// decodeRecord decodes the record starting at off and returns it with the
// offset of the next record.
func decodeRecord(buf []byte, off int) (*Record, int, error) {
	if off+3 > len(buf) {
		return nil, 0, fmt.Errorf("%w: truncated framing at offset %d", ErrBadRecord, off)
	}
	if tlv.Tag(buf[off]) != recTagRecordLength {
		return nil, 0, fmt.Errorf("%w: expected record length tag at offset %d, saw %d", ErrBadRecord, off, buf[off])
	}
	total := int(binary.BigEndian.Uint16(buf[off+1 : off+3]))
	if total < 3 || off+total > len(buf) {
		return nil, 0, fmt.Errorf("%w: record length %d at offset %d", ErrBadRecord, total, off)
	}

	rec := &Record{}
	fields := buf[off+3 : off+total]
	sawRole := false

	for pos := 0; pos < len(fields); {
		e, err := tlv.DecodeNext(fields, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("record at offset %d: %w", off, err)
		}
		pos = e.Next

		switch e.Tag {
		case recTagSubjectName:
			rec.SubjectName = cString(e.Value)
		case recTagIssuerName:
			rec.IssuerName = cString(e.Value)
		case recTagSerialNumber:
			rec.SerialNumber = e.Value
		case recTagRole:
			if len(e.Value) != 2 {
				return nil, 0, fmt.Errorf("%w: role field", ErrBadRecord)
			}
			rec.Role = Role(binary.BigEndian.Uint16(e.Value))
			sawRole = true
		case recTagPublicKey:
			km, err := certs.ParseKeyMaterial(e.Value)
			if err != nil {
				return nil, 0, err
			}
			rec.PublicKey = km
		case recTagSignature:
			rec.Signature = e.Value
		case recTagCertificate:
			cert, err := x509.ParseCertificate(e.Value)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %v", certs.ErrInvalidCertificate, err)
			}
			rec.Certificate = cert
		case recTagIPAddress:
			rec.IPAddress = e.Value
		case recTagCertificateHash:
			rec.CertificateHash = e.Value
		case recTagHashAlgorithm:
			if len(e.Value) != 1 {
				return nil, 0, fmt.Errorf("%w: hash algorithm field", ErrBadRecord)
			}
			rec.CertHashAlgorithm = e.Value[0]
		default:
			return nil, 0, fmt.Errorf("%w: tag %d", ErrUnknownTag, e.Tag)
		}
	}

	if !sawRole || len(rec.SerialNumber) == 0 {
		return nil, 0, fmt.Errorf("%w: role or serial missing", ErrBadRecord)
	}
	return rec, off + total, nil
}

// cString trims the trailing NUL of a string field.
func cString(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b)
}
