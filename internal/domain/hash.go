package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainSnapshot prefixes every snapshot hash. The version suffix leaves
// room to change the snapshot layout without colliding with old hashes.
const DomainSnapshot = "priceforge/snapshot/v1"

// SnapshotHash computes SHA256(domain + 0x00 + snapshot).
func SnapshotHash(snapshot []byte) string {
	return hashWithDomain(DomainSnapshot, snapshot)
}

// hashWithDomain hashes data with a domain separator. The null byte keeps
// the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
