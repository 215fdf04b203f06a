package services

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"consultapp/internal/models"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLength = 80
	MaxColorLength       = 32
	MaxLinks             = 50
	MaxLinkLabelLength   = 80
	MaxRadius            = 64
)

func validateDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", models.NewValidationError("displayName", "is required")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", models.NewValidationError("displayName", fmt.Sprintf("must be at most %d characters", MaxDisplayNameLength))
	}
	return name, nil
}

func validateTheme(theme models.ThemeConfig) (models.ThemeConfig, error) {
	colors := []struct {
		field string
		value *string
	}{
		{"theme.background", &theme.Background},
		{"theme.foreground", &theme.Foreground},
		{"theme.primary", &theme.Primary},
		{"theme.muted", &theme.Muted},
	}
	for _, c := range colors {
		*c.value = strings.TrimSpace(*c.value)
		if *c.value == "" {
			return theme, models.NewValidationError(c.field, "is required")
		}
		if len(*c.value) > MaxColorLength {
			return theme, models.NewValidationError(c.field, fmt.Sprintf("must be at most %d characters", MaxColorLength))
		}
	}

	theme.Font = models.FontFamily(strings.ToLower(strings.TrimSpace(string(theme.Font))))
	if theme.Font == "" {
		theme.Font = models.FontGeist
	}
	if !theme.Font.Valid() {
		return theme, models.NewValidationError("theme.font", "must be one of geist, serif, mono, sans, inter")
	}

	if theme.Radius != nil && (*theme.Radius < 0 || *theme.Radius > MaxRadius) {
		return theme, models.NewValidationError("theme.radius", fmt.Sprintf("must be between 0 and %d", MaxRadius))
	}
	return theme, nil
}

// validateLinks returns a cleaned copy of links. Missing ids are generated.
func validateLinks(links []models.TenantLink) ([]models.TenantLink, error) {
	if len(links) > MaxLinks {
		return nil, models.NewValidationError("links", fmt.Sprintf("at most %d links are allowed", MaxLinks))
	}

	out := make([]models.TenantLink, 0, len(links))
	seen := make(map[string]bool, len(links))
	for i, link := range links {
		field := fmt.Sprintf("links[%d]", i)

		link.ID = strings.TrimSpace(link.ID)
		if link.ID == "" {
			link.ID = uuid.NewString()
		}
		if seen[link.ID] {
			return nil, models.NewValidationError(field+".id", "duplicate link id")
		}
		seen[link.ID] = true

		if !link.Type.Valid() {
			return nil, models.NewValidationError(field+".type", "unknown link type")
		}

		link.Href = strings.TrimSpace(link.Href)
		if !isWebURL(link.Href) {
			return nil, models.NewValidationError(field+".href", "must be an absolute http or https URL")
		}

		if link.Label != nil {
			label := strings.TrimSpace(*link.Label)
			if label == "" {
				link.Label = nil
			} else if utf8.RuneCountInString(label) > MaxLinkLabelLength {
				return nil, models.NewValidationError(field+".label", fmt.Sprintf("must be at most %d characters", MaxLinkLabelLength))
			} else {
				link.Label = &label
			}
		}
		out = append(out, link)
	}
	return out, nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
