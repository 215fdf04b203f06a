package common

import (
	"errors"
	"strings"
	"testing"

	"consultapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTenantID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normalized", input: "my-clinic", expected: "my-clinic"},
		{name: "uppercase and punctuation", input: "My Clinic!!", expected: "my-clinic"},
		{name: "whitespace run collapses", input: "dr  \t house", expected: "dr-house"},
		{name: "surrounding whitespace trimmed", input: "  clinic  ", expected: "clinic"},
		{name: "accents are dropped", input: "Clínica Sánchez", expected: "clnica-snchez"},
		{name: "digits kept", input: "Studio 54", expected: "studio-54"},
		{name: "underscores and dots dropped", input: "a_b.c", expected: "abc"},
		{name: "only symbols", input: "!!!", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTenantID(tt.input))
		})
	}
}

func TestNormalizeTenantID_IdempotentAndAlphabet(t *testing.T) {
	inputs := []string{
		"My Clinic!!", "   ", "ÀÉÎÕÜ", "a - b", "--x--", "Tab\tAnd\nNewline", "日本語 slug", "K-Kelvin", "MIXED case 123",
		strings.Repeat("ab ", 40),
	}
	for _, in := range inputs {
		once := NormalizeTenantID(in)
		assert.Equal(t, once, NormalizeTenantID(once), "input %q", in)
		for _, r := range once {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
			assert.True(t, ok, "unexpected rune %q in %q", r, once)
		}
	}
}

func TestValidateTenantID(t *testing.T) {
	slug, err := ValidateTenantID("My Clinic!!", "tenantId")
	require.NoError(t, err)
	assert.Equal(t, "my-clinic", slug)

	_, err = ValidateTenantID("", "tenantId")
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = ValidateTenantID("a!", "tenantId")
	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "tenantId", vErr.Field)

	_, err = ValidateTenantID(strings.Repeat("a", 51), "tenantId")
	assert.ErrorIs(t, err, models.ErrValidation)

	slug, err = ValidateTenantID(strings.Repeat("a", 50), "tenantId")
	require.NoError(t, err)
	assert.Len(t, slug, 50)
}

func TestIsSlug(t *testing.T) {
	assert.True(t, IsSlug("abc"))
	assert.True(t, IsSlug("my-clinic-2"))
	assert.False(t, IsSlug("ab"))
	assert.False(t, IsSlug("My-Clinic"))
	assert.False(t, IsSlug("my clinic"))
}

func TestIsUnderPrefix(t *testing.T) {
	assert.True(t, IsUnderPrefix("/admin", "/admin"))
	assert.True(t, IsUnderPrefix("/admin/theme", "/admin"))
	assert.True(t, IsUnderPrefix("/admin/theme", "/admin/"))
	assert.False(t, IsUnderPrefix("/administrator", "/admin"))
	assert.False(t, IsUnderPrefix("/in/admin", "/admin"))
}

func TestLoginRedirectURL(t *testing.T) {
	assert.Equal(t, "/login?from=%2Fadmin%2Ftheme", LoginRedirectURL("/login", "from", "/admin/theme"))
	assert.Equal(t, "/login?from=%2F", LoginRedirectURL("/login", "from", ""))
}
