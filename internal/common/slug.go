package common

import (
	"strings"
	"unicode"

	"consultapp/internal/models"
)

const (
	MinTenantIDLength = 3
	MaxTenantIDLength = 50
)

// NormalizeTenantID turns user input into a slug: lowercase, whitespace runs
// become a single hyphen, and anything outside [a-z0-9-] is dropped.
// The result is stable under repeated application.
func NormalizeTenantID(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(raw))
	inSpace := false
	for _, r := range raw {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateTenantID normalizes raw and checks the length bounds of the result
func ValidateTenantID(raw, fieldName string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", models.NewValidationError(fieldName, "is required")
	}
	slug := NormalizeTenantID(raw)
	if len(slug) < MinTenantIDLength || len(slug) > MaxTenantIDLength {
		return "", models.NewValidationError(fieldName, "must be 3 to 50 characters of a-z, 0-9 or '-'")
	}
	return slug, nil
}

// IsSlug reports whether s is already a well-formed tenant id
func IsSlug(s string) bool {
	if len(s) < MinTenantIDLength || len(s) > MaxTenantIDLength {
		return false
	}
	return NormalizeTenantID(s) == s
}
