// Package sync implements change detection for remote text records: content
// normalization, hashing and the classification of each remote row against
// its local shadow copy.
package sync

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// DefaultHashMethod is used when a task does not specify one.
const DefaultHashMethod = "sha256"

// Normalize canonicalizes text before hashing: leading/trailing whitespace is
// trimmed and internal runs of whitespace collapse to a single space. Both
// read paths (remote fetch and local compare) must use this same function or
// equal content produces false modification hits.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// HashText returns the hex digest of the normalized text under method.
// sha256 is the default; sha1 and md5 are accepted for mirrors created
// before the default changed. An unknown method hashes with sha256, which
// keeps fetch and compare consistent with each other even on a
// misconfigured task.
func HashText(text, method string) string {
	var h hash.Hash
	switch strings.ToLower(method) {
	case "sha1":
		h = sha1.New()
	case "md5":
		h = md5.New()
	default:
		h = sha256.New()
	}
	h.Write([]byte(Normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}
