package enccnf

import "errors"

var (
	// ErrHashMismatch is returned when the decrypted plaintext's digest
	// does not equal the ENCRYPTION_HASH the header declares.
	ErrHashMismatch = errors.New("enccnf: decrypted configuration hash mismatch")

	// ErrNotDeviceDocument is returned when the configuration XML root is
	// not a device element.
	ErrNotDeviceDocument = errors.New("enccnf: configuration root element is not <device>")

	// ErrBadPadCount is returned when the declared padding count cannot be
	// stripped from the recovered plaintext.
	ErrBadPadCount = errors.New("enccnf: bad padding count")

	// ErrBadPath is returned when an input path lacks the expected suffix.
	ErrBadPath = errors.New("enccnf: unexpected file suffix")
)
