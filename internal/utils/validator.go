package utils

import "strings"

func IsValidScore(score int) bool {
	return score >= 1 && score <= 5
}

func SanitizeString(input string) string {
	return strings.TrimSpace(input)
}

// SameWallet compares actor identifiers case-insensitively, the way the
// chain treats addresses.
func SameWallet(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
