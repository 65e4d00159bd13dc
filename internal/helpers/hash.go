package helpers

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Fingerprints printed output so the build cache can tell whether a unit
// changed without comparing the full text
func Fingerprint(contents string) string {
	var bytes [8]byte
	hash := xxhash.Sum64String(contents)
	for i := range bytes {
		bytes[i] = byte(hash >> (56 - 8*uint(i)))
	}
	return hex.EncodeToString(bytes[:])
}

// Combines the fingerprints of several outputs. The order of "parts" matters.
func CombineFingerprints(parts []string) string {
	hash := xxhash.New()
	for _, part := range parts {
		hash.WriteString(part)
		hash.WriteString("\x00")
	}
	return hex.EncodeToString(hash.Sum(nil))
}
