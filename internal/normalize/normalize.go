// Package normalize holds the canonical forms used for storage and lookups.
package normalize

import "strings"

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization trims surrounding whitespace
// and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// ID trims surrounding whitespace from a user or message identifier.
// Identifiers are case-sensitive so nothing else changes.
func ID(id string) string {
	return strings.TrimSpace(id)
}

// Text trims message content the same way the document schema did,
// leaving interior whitespace and newlines untouched.
func Text(s string) string {
	return strings.TrimSpace(s)
}
