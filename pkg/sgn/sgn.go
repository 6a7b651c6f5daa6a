// Package sgn implements the opaque signed container: a header bound to a
// raw payload such as a firmware image. Building signs the payload into a
// .sgn file; stripping recovers the payload without touching keys; parsing
// dumps the header and verifies the signature against a certificate.
package sgn

import (
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
)

// BuildConfig configures an opaque build.
type BuildConfig struct {
	// Signer is the identity whose key signs the container. The private
	// key is required and must be RSA.
	Signer *certs.Identity

	// Hash selects the signature digest. Zero means SHA-512.
	Hash certs.HashAlgorithm

	// Version is the envelope version. Zero means 1.0.
	Version envelope.Version

	// Filename is the FILENAME header field. BuildFile derives it from the
	// output path; Build requires it.
	Filename string

	// Timestamp overrides the header timestamp. Zero means now.
	Timestamp time.Time

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// ParseConfig configures parsing and verification.
type ParseConfig struct {
	// Certificate verifies the envelope signature. Required.
	Certificate *x509.Certificate

	// Out receives the human-readable field dump as fields are decoded.
	// Optional.
	Out io.Writer

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Build signs a payload into an opaque container.
func Build(payload []byte, cfg BuildConfig) ([]byte, error) {
	if cfg.Signer == nil || cfg.Signer.Certificate == nil {
		return nil, fmt.Errorf("%w: signer", envelope.ErrMissingField)
	}
	key, err := cfg.Signer.RSAKey()
	if err != nil {
		return nil, err
	}

	var log logging.LeveledLogger
	if cfg.LoggerFactory != nil {
		log = cfg.LoggerFactory.NewLogger("sgn")
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

	cert := cfg.Signer.Certificate
	spec := envelope.HeaderSpec{
		Version:       version,
		SignerName:    certs.SubjectString(cert),
		IssuerName:    certs.IssuerString(cert),
		SerialNumber:  certs.SerialBytes(cert),
		HashAlgorithm: hash,
		Filename:      cfg.Filename,
		Timestamp:     uint32(ts.Unix()),
	}
	file, err := envelope.BuildSigned(spec, payload, key)
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Debugf("built %s: %d header + %d payload bytes", cfg.Filename, len(file)-len(payload), len(payload))
	}
	return file, nil
}

// BuildFile reads the input whole, signs it, and writes the container next
// to it with a .sgn suffix. Returns the output path.
func BuildFile(path string, cfg BuildConfig) (string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	outPath := path + ".sgn"
	if cfg.Filename == "" {
		cfg.Filename = filepath.Base(outPath)
	}
	file, err := Build(payload, cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, file, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	return outPath, nil
}

// Strip recovers the payload by copying everything after the header. No
// keys and no signature verification are involved; a header-only container
// strips to zero bytes.
func Strip(file []byte) ([]byte, error) {
	_, headerLen, err := envelope.ReadPrelude(file)
	if err != nil {
		return nil, err
	}
	if headerLen > len(file) {
		return nil, fmt.Errorf("%w: header length %d exceeds file size %d", envelope.ErrTruncated, headerLen, len(file))
	}
	return file[headerLen:], nil
}

// StripFile removes the container around a signed file, writing the
// payload to the input path minus its final extension. Handles both .sgn
// and .sha512 names.
func StripFile(path string) (string, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	payload, err := Strip(file)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(path)
	if ext == "" || ext == filepath.Base(path) {
		return "", fmt.Errorf("%s: %w", path, ErrNoExtension)
	}
	outPath := strings.TrimSuffix(path, ext)
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	return outPath, nil
}

// Parse dumps the header fields and verifies the envelope signature with
// the configured certificate. Fields decoded before a structural error are
// already on cfg.Out when the error returns. The verdict line is written
// in both outcomes; an invalid signature is also returned as an error.
func Parse(file []byte, cfg ParseConfig) (*envelope.HeaderView, error) {
	view, err := envelope.WalkHeader(file, cfg.Out)
	if err != nil {
		return nil, err
	}
	if cfg.Certificate == nil {
		return nil, fmt.Errorf("%w: verification certificate", envelope.ErrMissingField)
	}
	pub, err := rsaPublicKey(cfg.Certificate)
	if err != nil {
		return nil, err
	}
	if err := envelope.VerifyFile(file, view, pub); err != nil {
		if cfg.Out != nil {
			fmt.Fprintln(cfg.Out, "Invalid signature")
		}
		return view, err
	}
	if cfg.Out != nil {
		fmt.Fprintln(cfg.Out, "Valid signature")
	}
	return view, nil
}

func rsaPublicKey(cert *x509.Certificate) (*rsa.PublicKey, error) {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, certs.ErrUnsupportedKeyType
	}
	return pub, nil
}
