package trustlist

import "errors"

var (
	// ErrBadPath is returned when an output path lacks the .tlv suffix.
	ErrBadPath = errors.New("trustlist: path must end in .tlv")

	// ErrNoSAST is returned when no record carries the signing-authority role.
	ErrNoSAST = errors.New("trustlist: no signing-authority record")

	// ErrMultipleSAST is returned when more than one record carries the
	// signing-authority role.
	ErrMultipleSAST = errors.New("trustlist: multiple signing-authority records")

	// ErrSerialMismatch is returned when the header signer serial does not
	// match the signing-authority record.
	ErrSerialMismatch = errors.New("trustlist: signer serial does not match signing-authority record")

	// ErrBadRecord is returned for records whose framing or mandatory
	// fields are broken.
	ErrBadRecord = errors.New("trustlist: malformed record")

	// ErrUnknownTag is returned for record tags outside the schema.
	ErrUnknownTag = errors.New("trustlist: unknown record tag")
)
