package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashProfileKey returns a stable, key-safe identifier for a client profile name.
func HashProfileKey(profile string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(profile))))
	return hex.EncodeToString(sum[:])
}
