package envelope

import "errors"

var (
	// ErrTruncated is returned when the header walk runs past the buffer end.
	ErrTruncated = errors.New("envelope: truncated input")

	// ErrBadTag is returned when a specific tag was expected and another was found.
	ErrBadTag = errors.New("envelope: unexpected tag")

	// ErrUnknownTag is returned for tags outside the header schema.
	ErrUnknownTag = errors.New("envelope: unknown tag")

	// ErrMissingField is returned when a mandatory header field is absent.
	ErrMissingField = errors.New("envelope: missing mandatory field")

	// ErrBadFieldLength is returned when a fixed-layout field has the wrong size.
	ErrBadFieldLength = errors.New("envelope: bad field length")

	// ErrUnsupportedAlgorithm is returned for hash identifiers or signature
	// modulus indices outside the supported set.
	ErrUnsupportedAlgorithm = errors.New("envelope: unsupported algorithm")

	// ErrSignatureOutsideHeader is returned when the signature element does
	// not end within the declared header length.
	ErrSignatureOutsideHeader = errors.New("envelope: signature outside header")
)
