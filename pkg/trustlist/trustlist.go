package trustlist

import (
	"bytes"
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
	"github.com/voipsec/sgntlv/pkg/tlv"
)

// Entry is one certificate to include when building a trust list.
type Entry struct {
	Role        Role
	Certificate *x509.Certificate
}

// BuildConfig configures a trust-list build.
type BuildConfig struct {
	// Signer is the signing-authority identity. Its certificate must also
	// appear among the entries with RoleSAST.
	Signer *certs.Identity

	// Entries are the certificates to record, in emission order.
	Entries []Entry

	// Hash selects the signature digest. Zero means SHA-512.
	Hash certs.HashAlgorithm

	// SignerVersion is the trust-list layout version, 1.0 or 1.1.
	// Zero means 1.1.
	SignerVersion envelope.Version

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

// ParseConfig configures trust-list parsing.
type ParseConfig struct {
	// Out receives the human-readable dump as fields are decoded. Optional.
	Out io.Writer

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// TrustList is a fully parsed trust-list container.
type TrustList struct {
	Header  *envelope.HeaderView
	Records []*Record
}

// SAST returns the signing-authority record whose serial matches the
// header signer serial.
func (tl *TrustList) SAST() (*Record, error) {
	for _, rec := range tl.Records {
		if rec.Role == RoleSAST && bytes.Equal(rec.SerialNumber, tl.Header.SerialNumber) {
			return rec, nil
		}
	}
	return nil, ErrNoSAST
}

// Build assembles and signs a trust list.
func Build(cfg BuildConfig) ([]byte, error) {
	if cfg.Signer == nil || cfg.Signer.Certificate == nil {
		return nil, fmt.Errorf("%w: signer", envelope.ErrMissingField)
	}
	key, err := cfg.Signer.RSAKey()
	if err != nil {
		return nil, err
	}
	if err := checkSAST(cfg.Signer.Certificate, cfg.Entries); err != nil {
		return nil, err
	}

	var log logging.LeveledLogger
	if cfg.LoggerFactory != nil {
		log = cfg.LoggerFactory.NewLogger("trustlist")
	}

	hash := cfg.Hash
	if hash == 0 {
		hash = certs.HashSHA512
	}
	signerVersion := cfg.SignerVersion
	if signerVersion == (envelope.Version{}) {
		signerVersion = envelope.V11
	}
	version := cfg.Version
	if version == (envelope.Version{}) {
		version = envelope.V10
	}
	ts := cfg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	w := tlv.NewWriter()
	for _, entry := range cfg.Entries {
		if err := appendRecord(w, entry.Role, entry.Certificate); err != nil {
			return nil, err
		}
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
		SignerVersion: &signerVersion,
	}
	file, err := envelope.BuildSigned(spec, w.Bytes(), key)
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Debugf("built %s: %d records, %d bytes", cfg.Filename, len(cfg.Entries), len(file))
	}
	return file, nil
}

// checkSAST enforces that exactly one entry carries the signing-authority
// role and that its serial matches the signer certificate.
func checkSAST(signer *x509.Certificate, entries []Entry) error {
	var sast *x509.Certificate
	for _, entry := range entries {
		if entry.Role != RoleSAST {
			continue
		}
		if sast != nil {
			return ErrMultipleSAST
		}
		sast = entry.Certificate
	}
	if sast == nil {
		return ErrNoSAST
	}
	if !bytes.Equal(certs.SerialBytes(sast), certs.SerialBytes(signer)) {
		return ErrSerialMismatch
	}
	return nil
}

// BuildFile builds a trust list and writes it to path, which must end in
// .tlv.
func BuildFile(path string, cfg BuildConfig) error {
	if !strings.HasSuffix(path, ".tlv") {
		return fmt.Errorf("%s: %w", path, ErrBadPath)
	}
	if cfg.Filename == "" {
		cfg.Filename = filepath.Base(path)
	}
	file, err := Build(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, file, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Parse decodes a trust list, dumps its header and records, and verifies
// the envelope signature with the public key of the signing-authority
// record whose serial matches the header. Output written before a
// structural error is left on cfg.Out.
func Parse(file []byte, cfg ParseConfig) (*TrustList, error) {
	var log logging.LeveledLogger
	if cfg.LoggerFactory != nil {
		log = cfg.LoggerFactory.NewLogger("trustlist")
	}

	header, err := envelope.WalkHeader(file, cfg.Out)
	if err != nil {
		return nil, err
	}

	tl := &TrustList{Header: header}
	body := header.Payload(file)
	for off := 0; off < len(body); {
		rec, next, err := decodeRecord(body, off)
		if err != nil {
			return nil, err
		}
		tl.Records = append(tl.Records, rec)
		off = next
		dumpRecord(cfg.Out, len(tl.Records), rec)
	}
	if log != nil {
		log.Debugf("parsed %d records", len(tl.Records))
	}

	sast, err := tl.SAST()
	if err != nil {
		return tl, err
	}
	pub, err := sast.PublicKey.RSAPublicKey()
	if err != nil {
		return tl, err
	}
	if err := envelope.VerifyFile(file, header, pub); err != nil {
		if cfg.Out != nil {
			fmt.Fprintln(cfg.Out, "Invalid signature")
		}
		return tl, err
	}
	if cfg.Out != nil {
		fmt.Fprintln(cfg.Out, "Valid signature")
	}
	return tl, nil
}

// LoadFile reads and parses a trust-list file.
func LoadFile(path string, cfg ParseConfig) (*TrustList, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(file, cfg)
}

func dumpRecord(out io.Writer, index int, rec *Record) {
	if out == nil {
		return
	}
	fmt.Fprintf(out, "Record %d\n", index)
	fmt.Fprintf(out, "  Subject Name: %s\n", rec.SubjectName)
	fmt.Fprintf(out, "  Issuer Name: %s\n", rec.IssuerName)
	fmt.Fprintf(out, "  Serial Number: %x\n", rec.SerialNumber)
	fmt.Fprintf(out, "  Role: %s\n", rec.Role)
	if rec.PublicKey.Kind != 0 {
		fmt.Fprintf(out, "  Public Key: %s %d bits\n", rec.PublicKey.Kind, rec.PublicKey.Bits)
	}
	if len(rec.IPAddress) > 0 {
		fmt.Fprintf(out, "  IP Address: %x\n", rec.IPAddress)
	}
	if len(rec.CertificateHash) > 0 {
		fmt.Fprintf(out, "  Certificate Hash: %x\n", rec.CertificateHash)
	}
}
