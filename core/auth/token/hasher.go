package token

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the deterministic hex digest used to store and look up
// tokens without persisting plaintext.
func Hash(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}
