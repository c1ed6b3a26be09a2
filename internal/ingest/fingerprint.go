// Package ingest turns data from external systems into chores and events,
// creating each external item at most once.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is a stable dedup key: the first 16 hex characters of the
// SHA-256 of fields joined by "|".
func Fingerprint(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
