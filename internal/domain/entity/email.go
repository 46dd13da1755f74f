package entity

import "strings"

// NormalizeEmail lower-cases and trims an email so it can be compared and indexed
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func equalFoldEmail(a, b string) bool {
	return NormalizeEmail(a) == NormalizeEmail(b)
}
