package token

import (
	"crypto/rand"
	"encoding/hex"
)

// Size is the number of random bytes behind every token.
const Size = 32

// New generates a cryptographically random 64-character hex token.
// crypto/rand aborts the process when the system source is unavailable,
// so there is no error path and no weaker fallback.
func New() string {
	b := make([]byte, Size)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Valid reports whether s has the shape of a token produced by New.
func Valid(s string) bool {
	if len(s) != hex.EncodedLen(Size) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Prefix shortens a token for log output.
func Prefix(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
