// Package crypto provides the tamper-evidence primitives for reliability logs.
package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// Digest returns the lowercase hex SHA-256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Verify compares two hex digests in constant time.
// Digests of different length are unequal.
func Verify(stored, computed string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) == 1
}

// ChecksumFor builds the canonical payload of entry and digests it.
// The stored checksum on entry is ignored.
func ChecksumFor(entry *models.ReliabilityLogEntry) (string, error) {
	payload, err := CanonicalPayload(entry)
	if err != nil {
		return "", err
	}
	return Digest(payload), nil
}

// VerifyEntry recomputes the checksum of entry from its columns and compares it
// with the stored value. It returns the recomputed digest alongside the verdict.
func VerifyEntry(entry *models.ReliabilityLogEntry) (bool, string, error) {
	computed, err := ChecksumFor(entry)
	if err != nil {
		return false, "", err
	}
	return Verify(entry.ChecksumSHA256, computed), computed, nil
}
