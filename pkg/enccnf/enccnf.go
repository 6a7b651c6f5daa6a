// Package enccnf implements the encrypted device-configuration container:
// an XML configuration AES-128-CBC encrypted inside a signed envelope, the
// AES key wrapped to the recipient device, plus a signed pointer envelope
// that tells the device which certificate to decrypt with. Building
// produces both files; decrypting reverses the whole construction and
// checks the cleartext digest the header carries.
package enccnf

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pion/logging"

	"github.com/voipsec/sgntlv/pkg/certs"
	"github.com/voipsec/sgntlv/pkg/envelope"
	"github.com/voipsec/sgntlv/pkg/sgn"
)

const (
	aesKeyBytes = 16
	aesKeyBits  = 128
	padByte     = 0x0D
)

// BuildConfig configures an encrypted-configuration build.
type BuildConfig struct {
	// Signer is the identity whose key signs both envelopes. The private
	// key is required and must be RSA.
	Signer *certs.Identity

	// Recipient is the device certificate the AES key is wrapped to.
	// Its public key must be RSA.
	Recipient *x509.Certificate

	// Hash selects both the signature digest and the cleartext
	// configuration digest. Zero means SHA-512.
	Hash certs.HashAlgorithm

	// Version is the envelope version. Zero means 1.0.
	Version envelope.Version

	// Filename is the FILENAME field of the encrypted envelope;
	// PointerFilename that of the pointer envelope. BuildFile derives
	// both from the input path.
	Filename        string
	PointerFilename string

	// Timestamp overrides the header timestamps. Zero means now.
	Timestamp time.Time

	// Rand is the randomness source for the IV and AES key, drawn once
	// per build. Nil means the operating system CSPRNG.
	Rand io.Reader

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// DecryptConfig configures decryption.
type DecryptConfig struct {
	// Recipient is the device identity; its RSA private key unwraps the
	// AES key.
	Recipient *certs.Identity

	// Out receives the header field dump as fields are decoded. Optional.
	Out io.Writer

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// BuildResult holds the two produced containers.
type BuildResult struct {
	Encrypted []byte
	Pointer   []byte
}

// Build encrypts and signs a device configuration, producing the encrypted
// envelope and its companion pointer envelope.
func Build(plaintext []byte, cfg BuildConfig) (*BuildResult, error) {
	if cfg.Signer == nil || cfg.Signer.Certificate == nil {
		return nil, fmt.Errorf("%w: signer", envelope.ErrMissingField)
	}
	key, err := cfg.Signer.RSAKey()
	if err != nil {
		return nil, err
	}
	if cfg.Recipient == nil {
		return nil, fmt.Errorf("%w: recipient certificate", envelope.ErrMissingField)
	}
	recipientPub, ok := cfg.Recipient.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, certs.ErrUnsupportedKeyType
	}

	var log logging.LeveledLogger
	if cfg.LoggerFactory != nil {
		log = cfg.LoggerFactory.NewLogger("enccnf")
	}

	hash := cfg.Hash
	if hash == 0 {
		hash = certs.HashSHA512
	}
	version := cfg.Version
	if version == (envelope.Version{}) {
		version = envelope.V10
	}
	ts := cfg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	// The pointer document doubles as validation that the input is a
	// device configuration.
	pointerXML, err := derivePointerXML(plaintext, cfg.Recipient)
	if err != nil {
		return nil, err
	}

	digest, err := hash.Sum(plaintext)
	if err != nil {
		return nil, err
	}

	// One draw from the CSPRNG covers both the IV and the AES key.
	random := cfg.Rand
	if random == nil {
		random = rand.Reader
	}
	var material [2 * aesKeyBytes]byte
	if _, err := io.ReadFull(random, material[:]); err != nil {
		return nil, fmt.Errorf("draw randomness: %w", err)
	}
	iv := material[:aesKeyBytes]
	aesKey := material[aesKeyBytes:]

	padCount := aesKeyBytes - len(plaintext)%aesKeyBytes
	padded := make([]byte, len(plaintext)+padCount)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = padByte
	}

	ciphertext, err := certs.EncryptAESCBC(aesKey, iv, padded)
	if err != nil {
		return nil, err
	}
	wrappedKey, err := certs.WrapKeyPKCS1v15(recipientPub, aesKey)
	if err != nil {
		return nil, err
	}

	cert := cfg.Signer.Certificate
	spec := envelope.HeaderSpec{
		Version:       version,
		SignerName:    certs.SubjectString(cert),
		IssuerName:    certs.IssuerString(cert),
		SerialNumber:  certs.SerialBytes(cert),
		HashAlgorithm: hash,
		Filename:      cfg.Filename,
		Timestamp:     uint32(ts.Unix()),
		Encryption: &envelope.EncryptionSpec{
			IV:            iv,
			PadCount:      padCount,
			KeyBits:       aesKeyBits,
			WrappedKey:    wrappedKey,
			HashAlgorithm: hash,
			Hash:          digest,
		},
	}
	encrypted, err := envelope.BuildSigned(spec, ciphertext, key)
	if err != nil {
		return nil, err
	}

	pointer, err := sgn.Build(pointerXML, sgn.BuildConfig{
		Signer:        cfg.Signer,
		Hash:          hash,
		Version:       envelope.V10,
		Filename:      cfg.PointerFilename,
		Timestamp:     ts,
		LoggerFactory: cfg.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	if log != nil {
		log.Debugf("built %s: %d plaintext bytes, pad %d", cfg.Filename, len(plaintext), padCount)
	}
	return &BuildResult{Encrypted: encrypted, Pointer: pointer}, nil
}

// BuildFile encrypts a configuration file in place: for an input base
// ending in .cnf.xml it writes base.enc.sgn and base.sgn, then deletes the
// plaintext. Both output paths are returned.
func BuildFile(path string, cfg BuildConfig) (string, string, error) {
	if !strings.HasSuffix(path, ".cnf.xml") {
		return "", "", fmt.Errorf("%s: %w", path, ErrBadPath)
	}
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}

	encPath := path + ".enc.sgn"
	ptrPath := path + ".sgn"
	if cfg.Filename == "" {
		cfg.Filename = filepath.Base(encPath)
	}
	if cfg.PointerFilename == "" {
		cfg.PointerFilename = filepath.Base(ptrPath)
	}

	result, err := Build(plaintext, cfg)
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(encPath, result.Encrypted, 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", encPath, err)
	}
	if err := os.WriteFile(ptrPath, result.Pointer, 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", ptrPath, err)
	}
	// The plaintext goes away only after both outputs exist.
	if err := os.Remove(path); err != nil {
		return "", "", fmt.Errorf("remove %s: %w", path, err)
	}
	return encPath, ptrPath, nil
}

// Decrypt recovers the configuration plaintext from an encrypted envelope
// and checks it against the digest the header declares.
func Decrypt(file []byte, cfg DecryptConfig) ([]byte, error) {
	if cfg.Recipient == nil {
		return nil, fmt.Errorf("%w: recipient identity", envelope.ErrMissingField)
	}
	key, err := cfg.Recipient.RSAKey()
	if err != nil {
		return nil, err
	}

	var log logging.LeveledLogger
	if cfg.LoggerFactory != nil {
		log = cfg.LoggerFactory.NewLogger("enccnf")
	}

	view, err := envelope.WalkHeader(file, cfg.Out)
	if err != nil {
		return nil, err
	}
	enc := view.Encryption
	if enc == nil {
		return nil, fmt.Errorf("%w: encryption info", envelope.ErrMissingField)
	}

	aesKey, err := certs.UnwrapKeyPKCS1v15(key, enc.WrappedKey)
	if err != nil {
		return nil, err
	}
	padded, err := certs.DecryptAESCBC(aesKey, enc.IV, view.Payload(file))
	if err != nil {
		return nil, err
	}

	// The pad count comes from the header. The pad byte value is never
	// scanned for; it collides with the padding tag by design of the
	// format.
	if enc.PadCount < 1 || enc.PadCount > len(padded) {
		return nil, fmt.Errorf("%w: %d of %d bytes", ErrBadPadCount, enc.PadCount, len(padded))
	}
	plaintext := padded[:len(padded)-enc.PadCount]

	digest, err := enc.HashAlgorithm.Sum(plaintext)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(digest, enc.Hash) {
		return nil, ErrHashMismatch
	}
	if log != nil {
		log.Debugf("decrypted %d bytes, pad %d", len(plaintext), enc.PadCount)
	}
	return plaintext, nil
}

// DecryptFile decrypts base.enc.sgn back to base, then unlinks both the
// encrypted file and its pointer envelope.
func DecryptFile(path string, cfg DecryptConfig) (string, error) {
	if !strings.HasSuffix(path, ".enc.sgn") {
		return "", fmt.Errorf("%s: %w", path, ErrBadPath)
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	plaintext, err := Decrypt(file, cfg)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(path, ".enc.sgn")
	if err := os.WriteFile(base, plaintext, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", base, err)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("remove %s: %w", path, err)
	}
	if err := os.Remove(base + ".sgn"); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("remove %s: %w", base+".sgn", err)
	}
	return base, nil
}
