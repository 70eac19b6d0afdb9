// Package fingerprint derives stable graph node identities from natural keys.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins the parts of a composite natural key before hashing.
const Separator = "|"

// Hash returns the lowercase hex SHA-256 digest of the UTF-8 bytes of s.
// Every graph node identity is derived through this function, so it must stay
// a pure function of its input: no salt, no per-process state. The backfill
// job computes the same digests in its own runtime and both must agree
// bit-for-bit.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Composite hashes a composite natural key, joining parts with Separator.
func Composite(parts ...string) string {
	return Hash(strings.Join(parts, Separator))
}
