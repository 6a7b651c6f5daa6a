// Package trustlist implements the signed certificate-list container
// distributed to devices to install root trust. The payload is a sequence
// of length-delimited records, each binding a certificate to the role its
// holder plays in the deployment.
package trustlist

import (
	"fmt"

	"github.com/voipsec/sgntlv/pkg/tlv"
)

// Role is the 16-bit function code carried in each record.
type Role uint16

const (
	// RoleSAST is the signing authority whose key signs envelopes.
	RoleSAST Role = 0
	// RoleCCM is a call manager.
	RoleCCM Role = 1
	// RoleCCMTFTP is a combined call manager and file server.
	RoleCCMTFTP Role = 2
	// RoleTFTP is a file server.
	RoleTFTP Role = 3
	// RoleCAPF is the authentication proxy.
	RoleCAPF Role = 4
	// RoleAppServer is an application server.
	RoleAppServer Role = 7
	// RoleTVS is the telephony verification service.
	RoleTVS Role = 21
)

// String returns the role mnemonic used in parse output.
func (r Role) String() string {
	switch r {
	case RoleSAST:
		return "SAST"
	case RoleCCM:
		return "CCM"
	case RoleCCMTFTP:
		return "CCM+TFTP"
	case RoleTFTP:
		return "TFTP"
	case RoleCAPF:
		return "CAPF"
	case RoleAppServer:
		return "APP-SERVER"
	case RoleTVS:
		return "TVS"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(r))
	}
}

// Record tag namespace. Records reuse the TLV grammar with their own tag
// numbering; tags 10-12 are recognized on parse but never emitted.
const (
	recTagRecordLength    tlv.Tag = 1
	recTagSubjectName     tlv.Tag = 3
	recTagRole            tlv.Tag = 4
	recTagIssuerName      tlv.Tag = 5
	recTagSerialNumber    tlv.Tag = 6
	recTagPublicKey       tlv.Tag = 7
	recTagSignature       tlv.Tag = 8
	recTagCertificate     tlv.Tag = 9
	recTagIPAddress       tlv.Tag = 10
	recTagCertificateHash tlv.Tag = 11
	recTagHashAlgorithm   tlv.Tag = 12
)
