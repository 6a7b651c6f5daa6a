package sgn

import "errors"

var (
	// ErrNoExtension is returned when a strip path has no extension to drop.
	ErrNoExtension = errors.New("sgn: path has no extension")
)
