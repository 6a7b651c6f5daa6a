package enccnf

import (
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"

	"github.com/voipsec/sgntlv/pkg/certs"
)

// preservedElements are the configuration children carried over into the
// pointer document so the device can keep booting before it decrypts.
var preservedElements = []string{
	"ipAddressMode",
	"loadInformation",
	"capfAuthMode",
	"capfList",
}

// derivePointerXML builds the pointer document for an encrypted
// configuration: a device element announcing encrypted configuration and
// identifying the recipient certificate by its MD5 digest.
func derivePointerXML(plaintext []byte, recipient *x509.Certificate) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(plaintext); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDeviceDocument, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "device" {
		return nil, ErrNotDeviceDocument
	}

	out := etree.NewDocument()
	device := out.CreateElement("device")
	device.CreateElement("fullConfig").SetText("false")
	for _, name := range preservedElements {
		if child := root.SelectElement(name); child != nil {
			device.AddChild(child.Copy())
		}
	}
	certHash := base64.StdEncoding.EncodeToString(certs.FingerprintMD5(recipient))
	device.CreateElement("certHash").SetText(certHash)
	device.CreateElement("encrConfig").SetText("true")

	return out.WriteToBytes()
}
