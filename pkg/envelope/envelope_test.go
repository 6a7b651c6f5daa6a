package envelope_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/voipsec/sgntlv/internal/testcert"
	"github.com/voipsec/sgntlv/pkg/certs"
	"github.com/voipsec/sgntlv/pkg/envelope"
)

func testSpec() envelope.HeaderSpec {
	return envelope.HeaderSpec{
		Version:       envelope.V10,
		SignerName:    "CN=signer,O=sgntlv test",
		IssuerName:    "CN=signer,O=sgntlv test",
		SerialNumber:  []byte{0x42},
		HashAlgorithm: certs.HashSHA512,
		Filename:      "firmware.bin.sgn",
		Timestamp:     1754000000,
	}
}

func TestAssembleHeader(t *testing.T) {
	spec := testSpec()
	spec.SignatureLength = 256

	h, err := envelope.AssembleHeader(spec)
	if err != nil {
		t.Fatalf("AssembleHeader() error: %v", err)
	}

	// Prelude: version element then header length element.
	wantPrelude := []byte{0x01, 0x00, 0x02, 0x01, 0x00, 0x02, 0x00, 0x02}
	if !bytes.Equal(h.Bytes[:8], wantPrelude) {
		t.Errorf("expected prelude %x, got %x", wantPrelude, h.Bytes[:8])
	}

	if h.HeaderLength%4 != 0 {
		t.Errorf("header length %d not 4-byte aligned", h.HeaderLength)
	}
	if h.HeaderLength != len(h.Bytes)+3+256 {
		t.Errorf("header length %d does not count the absent signature (image %d)", h.HeaderLength, len(h.Bytes))
	}
	declared := int(h.Bytes[8])<<8 | int(h.Bytes[9])
	if declared != h.HeaderLength {
		t.Errorf("declared header length %d, expected %d", declared, h.HeaderLength)
	}

	// The signature hole sits immediately after the SignatureInfo
	// container, whose nested length is fixed at 15.
	idx := bytes.Index(h.Bytes, []byte{0x07, 0x00, 0x0F})
	if idx < 0 {
		t.Fatal("SignatureInfo container not found")
	}
	if h.SignatureInsertOffset != idx+3+15 {
		t.Errorf("insert offset %d, expected %d", h.SignatureInsertOffset, idx+3+15)
	}
}

func TestAssembleHeader_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*envelope.HeaderSpec)
		want   error
	}{
		{"missing signer", func(s *envelope.HeaderSpec) { s.SignerName = "" }, envelope.ErrMissingField},
		{"missing serial", func(s *envelope.HeaderSpec) { s.SerialNumber = nil }, envelope.ErrMissingField},
		{"missing filename", func(s *envelope.HeaderSpec) { s.Filename = "" }, envelope.ErrMissingField},
		{"bad hash", func(s *envelope.HeaderSpec) { s.HashAlgorithm = 9 }, envelope.ErrUnsupportedAlgorithm},
		{"bad signature length", func(s *envelope.HeaderSpec) { s.SignatureLength = 384 }, envelope.ErrUnsupportedAlgorithm},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := testSpec()
			spec.SignatureLength = 256
			tc.mutate(&spec)
			if _, err := envelope.AssembleHeader(spec); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestModulusIndex(t *testing.T) {
	for idx, sigLen := range []int{64, 128, 256, 512} {
		got, err := envelope.ModulusIndex(sigLen)
		if err != nil {
			t.Fatalf("ModulusIndex(%d) error: %v", sigLen, err)
		}
		if got != uint8(idx) {
			t.Errorf("ModulusIndex(%d) = %d, expected %d", sigLen, got, idx)
		}
		back, err := envelope.SignatureLengthFromIndex(got)
		if err != nil {
			t.Fatalf("SignatureLengthFromIndex(%d) error: %v", got, err)
		}
		if back != sigLen {
			t.Errorf("round trip %d -> %d", sigLen, back)
		}
	}

	if _, err := envelope.ModulusIndex(384); !errors.Is(err, envelope.ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
	if _, err := envelope.SignatureLengthFromIndex(4); !errors.Is(err, envelope.ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestBuildSignedRoundTrip(t *testing.T) {
	id := testcert.NewRSAIdentity(t, "signer", 2048, 0x42)
	key, _ := id.RSAKey()
	payload := []byte("hello")

	file, err := envelope.BuildSigned(testSpec(), payload, key)
	if err != nil {
		t.Fatalf("BuildSigned() error: %v", err)
	}

	view, err := envelope.WalkHeader(file, nil)
	if err != nil {
		t.Fatalf("WalkHeader() error: %v", err)
	}
	if view.HeaderLength%4 != 0 {
		t.Errorf("header length %d not aligned", view.HeaderLength)
	}
	if view.HeaderLength > len(file) {
		t.Errorf("header length %d exceeds file size %d", view.HeaderLength, len(file))
	}
	if !bytes.Equal(view.Payload(file), payload) {
		t.Errorf("payload mismatch: %q", view.Payload(file))
	}
	if view.SignatureLength != 256 {
		t.Errorf("signature length %d, expected 256", view.SignatureLength)
	}
	if view.HashAlgorithm != certs.HashSHA512 {
		t.Errorf("hash %v, expected SHA512", view.HashAlgorithm)
	}
	if view.Filename != "firmware.bin.sgn" {
		t.Errorf("filename %q", view.Filename)
	}
	if view.Timestamp != 1754000000 {
		t.Errorf("timestamp %d", view.Timestamp)
	}

	if err := envelope.VerifyFile(file, view, &key.PublicKey); err != nil {
		t.Fatalf("VerifyFile() error: %v", err)
	}
}

func TestBuildSigned_TamperDetection(t *testing.T) {
	id := testcert.NewRSAIdentity(t, "signer", 2048, 0x42)
	key, _ := id.RSAKey()

	file, err := envelope.BuildSigned(testSpec(), []byte("hello"), key)
	if err != nil {
		t.Fatalf("BuildSigned() error: %v", err)
	}

	// Flip one payload byte.
	tampered := append([]byte(nil), file...)
	tampered[len(tampered)-1] ^= 0x01

	view, err := envelope.WalkHeader(tampered, nil)
	if err != nil {
		t.Fatalf("WalkHeader() error: %v", err)
	}
	if err := envelope.VerifyFile(tampered, view, &key.PublicKey); !errors.Is(err, certs.ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestBuildSigned_RefusesKeysAndHashes(t *testing.T) {
	small := testcert.NewRSAIdentity(t, "small", 1024, 1)
	key, _ := small.RSAKey()
	if _, err := envelope.BuildSigned(testSpec(), nil, key); !errors.Is(err, envelope.ErrUnsupportedAlgorithm) {
		t.Errorf("expected refusal of 1024-bit key, got %v", err)
	}

	ok := testcert.NewRSAIdentity(t, "ok", 2048, 2)
	key2, _ := ok.RSAKey()
	spec := testSpec()
	spec.HashAlgorithm = certs.HashSHA256
	if _, err := envelope.BuildSigned(spec, nil, key2); !errors.Is(err, envelope.ErrUnsupportedAlgorithm) {
		t.Errorf("expected refusal of SHA256 on build, got %v", err)
	}
}

func TestExtractSpliceInverse(t *testing.T) {
	id := testcert.NewRSAIdentity(t, "signer", 2048, 0x42)
	key, _ := id.RSAKey()

	spec := testSpec()
	header, err := envelope.AssembleHeader(envelope.HeaderSpec{
		Version:         spec.Version,
		SignerName:      spec.SignerName,
		IssuerName:      spec.IssuerName,
		SerialNumber:    spec.SerialNumber,
		HashAlgorithm:   spec.HashAlgorithm,
		SignatureLength: 256,
		Filename:        spec.Filename,
		Timestamp:       spec.Timestamp,
	})
	if err != nil {
		t.Fatal(err)
	}
	image := append(append([]byte(nil), header.Bytes...), []byte("payload")...)

	sig, err := envelope.Sign(image, key, spec.HashAlgorithm)
	if err != nil {
		t.Fatal(err)
	}
	file, err := envelope.SpliceIn(image, header.SignatureInsertOffset, sig)
	if err != nil {
		t.Fatal(err)
	}

	view, err := envelope.WalkHeader(file, nil)
	if err != nil {
		t.Fatal(err)
	}
	gotImage, gotSig, err := envelope.Extract(file, view)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotImage, image) {
		t.Error("extracted image differs from signed image")
	}
	if !bytes.Equal(gotSig, sig) {
		t.Error("extracted signature differs")
	}
}

func TestExtract_MissingSignature(t *testing.T) {
	view := &envelope.HeaderView{HeaderLength: 12}
	if _, _, err := envelope.Extract(make([]byte, 12), view); !errors.Is(err, envelope.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}

func TestWalkHeader_Dump(t *testing.T) {
	id := testcert.NewRSAIdentity(t, "signer", 2048, 0x42)
	key, _ := id.RSAKey()

	file, err := envelope.BuildSigned(testSpec(), []byte("hello"), key)
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	if _, err := envelope.WalkHeader(file, &out); err != nil {
		t.Fatalf("WalkHeader() error: %v", err)
	}
	dump := out.String()
	for _, want := range []string{
		"Version: 1.0",
		"Signer Name: CN=signer,O=sgntlv test",
		"Serial Number: 42",
		"Digest Algorithm: SHA512",
		"Filename: firmware.bin.sgn",
	} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump missing %q:\n%s", want, dump)
		}
	}
}

func TestWalkHeader_UnknownTag(t *testing.T) {
	// Version, header length 16, then an unknown tag 99 and padding.
	buf := []byte{
		0x01, 0x00, 0x02, 0x01, 0x00,
		0x02, 0x00, 0x02, 0x00, 0x10,
		0x63, 0x00, 0x01, 0xAA,
		0x0D, 0x0D,
	}
	if _, err := envelope.WalkHeader(buf, nil); !errors.Is(err, envelope.ErrUnknownTag) {
		t.Errorf("expected ErrUnknownTag, got %v", err)
	}
}

func TestWalkHeader_BadPrelude(t *testing.T) {
	buf := []byte{0x05, 0x00, 0x02, 0x01, 0x00}
	if _, err := envelope.WalkHeader(buf, nil); !errors.Is(err, envelope.ErrBadTag) {
		t.Errorf("expected ErrBadTag, got %v", err)
	}
}

func TestWalkHeader_HeaderLengthBeyondFile(t *testing.T) {
	buf := []byte{
		0x01, 0x00, 0x02, 0x01, 0x00,
		0x02, 0x00, 0x02, 0xFF, 0xFF,
	}
	if _, err := envelope.WalkHeader(buf, nil); !errors.Is(err, envelope.ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestReadPrelude(t *testing.T) {
	buf := []byte{
		0x01, 0x00, 0x02, 0x02, 0x01,
		0x02, 0x00, 0x02, 0x00, 0x0A,
	}
	version, headerLen, err := envelope.ReadPrelude(buf)
	if err != nil {
		t.Fatalf("ReadPrelude() error: %v", err)
	}
	if version.String() != "2.1" {
		t.Errorf("version %s, expected 2.1", version)
	}
	if headerLen != 10 {
		t.Errorf("header length %d, expected 10", headerLen)
	}
}
