// Package checksum fingerprints list sources so the cache can detect content
// changes on file systems with coarse modification times.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether data hashes to the hex digest sum.
func Matches(data []byte, sum string) bool {
	got := Sum(data)
	return len(got) == len(sum) && subtle.ConstantTimeCompare([]byte(got), []byte(sum)) == 1
}
