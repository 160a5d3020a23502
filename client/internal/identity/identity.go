// Package identity normalizes user references to a canonical key.
//
// A user may be referenced by identifier, email or display name depending
// on where the reference came from. The canonical key is the first
// non-blank of those three, trimmed; two references denote the same user
// iff their keys are equal.
package identity

import "strings"

// Key returns the canonical key for a reference with the given parts.
func Key(id, email, name string) string {
	for _, s := range []string{id, email, name} {
		if k := strings.TrimSpace(s); k != "" {
			return k
		}
	}
	return ""
}

// Normalize returns the canonical form of an already-flat key.
func Normalize(s string) string { return strings.TrimSpace(s) }

// Same reports whether a and b normalize to the same non-empty key.
func Same(a, b string) bool {
	ka, kb := Normalize(a), Normalize(b)
	return ka != "" && ka == kb
}
