package account

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainUpdate separates update fingerprints from any other hash family.
const DomainUpdate = "settle/update/v1"

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the content address of u.
// Two updates with the same canonical form share a fingerprint regardless of
// map iteration order or Unicode composition.
func Fingerprint(u Update) (string, error) {
	data, err := MarshalCanonical(u)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", u.ID, err)
	}
	return hashWithDomain(DomainUpdate, data), nil
}

// MustFingerprint is Fingerprint for updates known to be canonicalizable.
func MustFingerprint(u Update) string {
	id, err := Fingerprint(u)
	if err != nil {
		panic(err)
	}
	return id
}
