// Package tlv implements the tag-length-value encoding used by the signed
// container files of the VoIP device-security ecosystem: a one-byte tag, a
// big-endian two-byte length, and the value bytes. The padding element is
// the single structural exception; it is a bare filler byte with no length
// field.
package tlv

import "encoding/binary"

// Tag identifies a TLV element within its namespace. The header and the
// trust-list record bodies use distinct namespaces over the same grammar.
type Tag uint8

// TagPadding is the filler element. It is encoded as the single byte 0x0D
// and carries no length field or value.
const TagPadding Tag = 13

// Element is one decoded TLV element. Value aliases the input buffer; it is
// nil for padding elements.
type Element struct {
	Tag   Tag
	Value []byte

	// Start is the offset of the tag byte, ValueStart the offset of the
	// first value byte, and Next the offset of the following element.
	Start      int
	ValueStart int
	Next       int
}

// IsPadding reports whether the element is a bare padding byte.
func (e Element) IsPadding() bool {
	return e.Tag == TagPadding
}

// DecodeNext decodes the element starting at offset. A padding tag
// short-circuits before any length field is read.
func DecodeNext(buf []byte, offset int) (Element, error) {
	if offset >= len(buf) {
		return Element{}, ErrTruncated
	}
	tag := Tag(buf[offset])
	if tag == TagPadding {
		return Element{
			Tag:        tag,
			Start:      offset,
			ValueStart: offset + 1,
			Next:       offset + 1,
		}, nil
	}
	if offset+3 > len(buf) {
		return Element{}, ErrTruncated
	}
	length := int(binary.BigEndian.Uint16(buf[offset+1 : offset+3]))
	if offset+3+length > len(buf) {
		return Element{}, ErrTruncated
	}
	return Element{
		Tag:        tag,
		Value:      buf[offset+3 : offset+3+length],
		Start:      offset,
		ValueStart: offset + 3,
		Next:       offset + 3 + length,
	}, nil
}
