package util

import (
	"crypto/sha256"
	"encoding/hex"
)

const pseudonymLen = 16

// Pseudonymize maps a user id onto a short stable hex key for log lines.
// An empty id stays empty so guests remain distinguishable.
func Pseudonymize(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:pseudonymLen]
}
