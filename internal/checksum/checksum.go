// Package checksum fingerprints note content for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag is Sum quoted for use in an HTTP ETag header.
func ETag(data []byte) string {
	return `"` + Sum(data) + `"`
}

// Matches reports whether an If-Match style precondition holds for data.
// An empty condition or "*" always holds. Quoted and weak (W/) tags are
// accepted, as are comma separated lists.
func Matches(cond string, data []byte) bool {
	cond = strings.TrimSpace(cond)
	if cond == "" || cond == "*" {
		return true
	}
	want := []byte(Sum(data))
	for _, tag := range strings.Split(cond, ",") {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimPrefix(tag, "W/")
		tag = strings.Trim(tag, `"`)
		if subtle.ConstantTimeCompare([]byte(tag), want) == 1 {
			return true
		}
	}
	return false
}
