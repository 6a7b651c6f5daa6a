package enccnf_test

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"

	"github.com/voipsec/sgntlv/internal/testcert"
	"github.com/voipsec/sgntlv/pkg/certs"
	"github.com/voipsec/sgntlv/pkg/enccnf"
	"github.com/voipsec/sgntlv/pkg/envelope"
	"github.com/voipsec/sgntlv/pkg/sgn"
)

const testConfig = `<device><loadInformation>X</loadInformation></device>`

func buildTest(t *testing.T, plaintext []byte) (*enccnf.BuildResult, *certs.Identity, *certs.Identity) {
	t.Helper()

	signer := testcert.NewRSAIdentity(t, "tftp", 2048, 9)
	device := testcert.NewRSAIdentity(t, "SEP001122334455", 2048, 10)

	result, err := enccnf.Build(plaintext, enccnf.BuildConfig{
		Signer:          signer,
		Recipient:       device.Certificate,
		Filename:        "SEP001122334455.cnf.xml.enc.sgn",
		PointerFilename: "SEP001122334455.cnf.xml.sgn",
		Timestamp:       time.Unix(1754000000, 0),
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return result, signer, device
}

func TestBuildDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(testConfig)
	result, _, device := buildTest(t, plaintext)

	got, err := enccnf.Decrypt(result.Encrypted, enccnf.DecryptConfig{Recipient: device})
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestPaddingLemma(t *testing.T) {
	for _, size := range []int{1, 15, 16, 17, 47, 48, 53, 64} {
		plaintext := bytes.Repeat([]byte{'a'}, size)
		xml := []byte("<device>" + string(plaintext) + "</device>")

		result, _, _ := buildTest(t, xml)
		view, err := envelope.WalkHeader(result.Encrypted, nil)
		if err != nil {
			t.Fatal(err)
		}
		enc := view.Encryption
		if enc == nil {
			t.Fatal("no encryption view")
		}
		if enc.PadCount < 1 || enc.PadCount > 16 {
			t.Errorf("size %d: pad count %d outside 1..16", size, enc.PadCount)
		}
		if (len(xml)+enc.PadCount)%16 != 0 {
			t.Errorf("size %d: padded length not block aligned (pad %d)", size, enc.PadCount)
		}
		if len(view.Payload(result.Encrypted)) != len(xml)+enc.PadCount {
			t.Errorf("size %d: ciphertext length %d", size, len(view.Payload(result.Encrypted)))
		}
	}
}

func TestEncryptionHeaderFields(t *testing.T) {
	result, signer, _ := buildTest(t, []byte(testConfig))

	view, err := envelope.WalkHeader(result.Encrypted, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc := view.Encryption
	if enc == nil {
		t.Fatal("no encryption view")
	}
	if len(enc.IV) != 16 {
		t.Errorf("IV length %d", len(enc.IV))
	}
	if enc.KeyBits != 128 {
		t.Errorf("key size %d bits", enc.KeyBits)
	}
	if enc.KeyAlgorithm != 1 {
		t.Errorf("key algorithm %d", enc.KeyAlgorithm)
	}
	if len(enc.WrappedKey) != 256 {
		t.Errorf("wrapped key length %d", len(enc.WrappedKey))
	}
	if enc.HashAlgorithm != certs.HashSHA512 {
		t.Errorf("encryption hash %v", enc.HashAlgorithm)
	}
	wantDigest, _ := certs.HashSHA512.Sum([]byte(testConfig))
	if !bytes.Equal(enc.Hash, wantDigest) {
		t.Error("cleartext digest mismatch")
	}

	// The encrypted envelope itself verifies against the signer.
	if _, err := sgn.Parse(result.Encrypted, sgn.ParseConfig{Certificate: signer.Certificate}); err != nil {
		t.Errorf("encrypted envelope verification: %v", err)
	}
}

func TestCiphertextTamper_HashMismatch(t *testing.T) {
	result, _, device := buildTest(t, []byte(testConfig))

	view, err := envelope.WalkHeader(result.Encrypted, nil)
	if err != nil {
		t.Fatal(err)
	}
	tampered := append([]byte(nil), result.Encrypted...)
	tampered[view.HeaderLength] ^= 0x01

	if _, err := enccnf.Decrypt(tampered, enccnf.DecryptConfig{Recipient: device}); !errors.Is(err, enccnf.ErrHashMismatch) {
		t.Errorf("expected ErrHashMismatch, got %v", err)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	result, _, _ := buildTest(t, []byte(testConfig))
	other := testcert.NewRSAIdentity(t, "other-device", 2048, 11)

	if _, err := enccnf.Decrypt(result.Encrypted, enccnf.DecryptConfig{Recipient: other}); err == nil {
		t.Error("expected error decrypting with the wrong device key")
	}
}

func TestPointerEnvelope(t *testing.T) {
	plaintext := []byte(`<device>` +
		`<ipAddressMode>0</ipAddressMode>` +
		`<loadInformation>X</loadInformation>` +
		`<capfAuthMode>0</capfAuthMode>` +
		`</device>`)
	result, signer, device := buildTest(t, plaintext)

	// The pointer is an opaque envelope; verify and strip it.
	if _, err := sgn.Parse(result.Pointer, sgn.ParseConfig{Certificate: signer.Certificate}); err != nil {
		t.Fatalf("pointer verification: %v", err)
	}
	payload, err := sgn.Strip(result.Pointer)
	if err != nil {
		t.Fatal(err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		t.Fatalf("pointer payload is not XML: %v", err)
	}
	root := doc.Root()
	if root.Tag != "device" {
		t.Fatalf("pointer root %q", root.Tag)
	}

	want := map[string]string{
		"fullConfig":      "false",
		"ipAddressMode":   "0",
		"loadInformation": "X",
		"capfAuthMode":    "0",
		"encrConfig":      "true",
	}
	for name, text := range want {
		el := root.SelectElement(name)
		if el == nil {
			t.Errorf("pointer missing <%s>", name)
			continue
		}
		if el.Text() != text {
			t.Errorf("<%s> = %q, expected %q", name, el.Text(), text)
		}
	}
	if root.SelectElement("capfList") != nil {
		t.Error("absent capfList should not be invented")
	}

	sum := md5.Sum(device.Certificate.Raw)
	wantHash := base64.StdEncoding.EncodeToString(sum[:])
	if el := root.SelectElement("certHash"); el == nil || el.Text() != wantHash {
		t.Errorf("certHash mismatch")
	}
}

func TestBuild_RejectsNonDeviceXML(t *testing.T) {
	signer := testcert.NewRSAIdentity(t, "tftp", 2048, 9)
	device := testcert.NewRSAIdentity(t, "dev", 2048, 10)
	cfg := enccnf.BuildConfig{
		Signer:          signer,
		Recipient:       device.Certificate,
		Filename:        "x.cnf.xml.enc.sgn",
		PointerFilename: "x.cnf.xml.sgn",
	}

	if _, err := enccnf.Build([]byte("<other/>"), cfg); !errors.Is(err, enccnf.ErrNotDeviceDocument) {
		t.Errorf("expected ErrNotDeviceDocument, got %v", err)
	}
	if _, err := enccnf.Build([]byte("not xml at all <"), cfg); !errors.Is(err, enccnf.ErrNotDeviceDocument) {
		t.Errorf("expected ErrNotDeviceDocument, got %v", err)
	}
}

func TestDeterministicRandomness(t *testing.T) {
	signer := testcert.NewRSAIdentity(t, "tftp", 2048, 9)
	device := testcert.NewRSAIdentity(t, "dev", 2048, 10)

	material := make([]byte, 32)
	for i := range material {
		material[i] = byte(i + 1)
	}
	result, err := enccnf.Build([]byte(testConfig), enccnf.BuildConfig{
		Signer:          signer,
		Recipient:       device.Certificate,
		Filename:        "x.cnf.xml.enc.sgn",
		PointerFilename: "x.cnf.xml.sgn",
		Rand:            bytes.NewReader(material),
	})
	if err != nil {
		t.Fatal(err)
	}

	view, err := envelope.WalkHeader(result.Encrypted, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(view.Encryption.IV, material[:16]) {
		t.Errorf("IV %x, expected injected bytes", view.Encryption.IV)
	}
}

func TestBuildFileDecryptFile(t *testing.T) {
	signer := testcert.NewRSAIdentity(t, "tftp", 2048, 9)
	device := testcert.NewRSAIdentity(t, "dev", 2048, 10)
	dir := t.TempDir()

	inPath := filepath.Join(dir, "SEP001122334455.cnf.xml")
	plaintext := []byte(testConfig)
	if err := os.WriteFile(inPath, plaintext, 0o644); err != nil {
		t.Fatal(err)
	}

	encPath, ptrPath, err := enccnf.BuildFile(inPath, enccnf.BuildConfig{
		Signer:    signer,
		Recipient: device.Certificate,
	})
	if err != nil {
		t.Fatalf("BuildFile() error: %v", err)
	}
	if encPath != inPath+".enc.sgn" || ptrPath != inPath+".sgn" {
		t.Errorf("paths %s / %s", encPath, ptrPath)
	}
	if _, err := os.Stat(inPath); !os.IsNotExist(err) {
		t.Error("plaintext should be removed after build")
	}

	encFile, err := os.ReadFile(encPath)
	if err != nil {
		t.Fatal(err)
	}
	view, err := envelope.WalkHeader(encFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	if view.Filename != "SEP001122334455.cnf.xml.enc.sgn" {
		t.Errorf("header filename %q", view.Filename)
	}

	outPath, err := enccnf.DecryptFile(encPath, enccnf.DecryptConfig{Recipient: device})
	if err != nil {
		t.Fatalf("DecryptFile() error: %v", err)
	}
	if outPath != inPath {
		t.Errorf("decrypt path %s", outPath)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Error("file round trip mismatch")
	}
	if _, err := os.Stat(encPath); !os.IsNotExist(err) {
		t.Error("encrypted file should be removed after decrypt")
	}
	if _, err := os.Stat(ptrPath); !os.IsNotExist(err) {
		t.Error("pointer file should be removed after decrypt")
	}
}

func TestBuildFile_BadSuffix(t *testing.T) {
	signer := testcert.NewRSAIdentity(t, "tftp", 2048, 9)
	device := testcert.NewRSAIdentity(t, "dev", 2048, 10)

	_, _, err := enccnf.BuildFile("config.xml", enccnf.BuildConfig{Signer: signer, Recipient: device.Certificate})
	if !errors.Is(err, enccnf.ErrBadPath) {
		t.Errorf("expected ErrBadPath, got %v", err)
	}
	if _, err := enccnf.DecryptFile("config.sgn", enccnf.DecryptConfig{Recipient: device}); !errors.Is(err, enccnf.ErrBadPath) {
		t.Errorf("expected ErrBadPath, got %v", err)
	}
}
