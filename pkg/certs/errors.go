package certs

import "errors"

var (
	// ErrInvalidCertificate indicates a PEM file did not yield a usable X.509 certificate.
	ErrInvalidCertificate = errors.New("certs: invalid certificate")

	// ErrNoPrivateKey indicates an operation needed a private key the identity lacks.
	ErrNoPrivateKey = errors.New("certs: no private key")

	// ErrUnsupportedKeyType indicates a key that is neither RSA nor EC where permitted.
	ErrUnsupportedKeyType = errors.New("certs: unsupported key type")

	// ErrUnsupportedAlgorithm indicates a hash identifier outside the supported set.
	ErrUnsupportedAlgorithm = errors.New("certs: unsupported algorithm")

	// ErrInvalidSignature indicates cryptographic verification failed.
	ErrInvalidSignature = errors.New("certs: invalid signature")

	// ErrBadCiphertext indicates AES-CBC input (ciphertext, or plaintext
	// handed to EncryptAESCBC unpadded) whose length is not a whole number
	// of blocks.
	ErrBadCiphertext = errors.New("certs: ciphertext not a multiple of the block size")

	// ErrBadKeySize indicates a symmetric key or IV of the wrong length.
	ErrBadKeySize = errors.New("certs: bad key or IV length")

	// ErrInvalidPublicKey indicates public-key bytes that decode as neither
	// a PKCS#1 RSAPublicKey nor an uncompressed EC point.
	ErrInvalidPublicKey = errors.New("certs: invalid public key encoding")
)
