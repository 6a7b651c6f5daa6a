package tlv

import "errors"

var (
	// ErrTruncated is returned when the input ends inside an element.
	ErrTruncated = errors.New("tlv: truncated input")

	// ErrLengthOverflow is returned when a value exceeds the 16-bit length field.
	ErrLengthOverflow = errors.New("tlv: value exceeds 65535 bytes")

	// ErrNotInContainer is returned when ending a container that was never started.
	ErrNotInContainer = errors.New("tlv: not in container")

	// ErrInvalidUTF8 is returned when a string value contains invalid sequences.
	ErrInvalidUTF8 = errors.New("tlv: invalid UTF-8 string")

	// ErrBadPatchOffset is returned when a length patch lands outside the buffer.
	ErrBadPatchOffset = errors.New("tlv: patch offset out of range")
)
