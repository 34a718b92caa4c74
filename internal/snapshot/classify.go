// Package snapshot classifies bucket keys that embed a SNAPSHOT version
// marker and plans the reconciliation of competing snapshot builds of the
// same installable down to a single canonical copy.
package snapshot

import (
	"strconv"
	"strings"
)

// Marker is the literal token that flags a versioned snapshot artifact.
const Marker = "SNAPSHOT"

// UnknownOrdinal sorts as the oldest build; it is never promoted to "kept"
// over a parseable ordinal.
const UnknownOrdinal = -1

// Description is one snapshot artifact discovered in the bucket listing.
// Two descriptions represent the same installable iff their Prefix is equal.
type Description struct {
	// Prefix is the full key path up to and excluding the marker.
	Prefix string
	// Key is the original bucket key.
	Key string
	// Ordinal is the numeric build discriminator, UnknownOrdinal when no
	// digits follow the marker.
	Ordinal int
}

// Classify reports whether key names a snapshot artifact. The heuristic: the
// filename contains the marker at a position past its first character. A
// marker at position 0 is deliberately not a snapshot.
func Classify(key string) (Description, bool) {
	dir, name := splitKey(key)
	idx := strings.Index(name, Marker)
	if idx <= 0 {
		return Description{}, false
	}
	return Description{
		Prefix:  dir + name[:idx],
		Key:     key,
		Ordinal: parseOrdinal(name[idx:]),
	}, true
}

// splitKey separates a bucket key into its directory part (with trailing
// slash, possibly empty) and filename.
func splitKey(key string) (dir, name string) {
	i := strings.LastIndex(key, "/")
	if i <= 0 {
		return "", key
	}
	return key[:i+1], key[i+1:]
}

// parseOrdinal strips every non-digit from the marker suffix and parses the
// residue. "SNAPSHOT3.x86_64.rpm" therefore contributes every digit of the
// remainder, not just the ones adjacent to the marker.
func parseOrdinal(suffix string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, suffix)
	if digits == "" {
		return UnknownOrdinal
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return UnknownOrdinal
	}
	return n
}
