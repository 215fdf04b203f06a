package models

import (
	"time"
)

// LinkType identifies the network an outbound link points to.
type LinkType string

const (
	LinkInstagram  LinkType = "instagram"
	LinkFacebook   LinkType = "facebook"
	LinkX          LinkType = "x"
	LinkTikTok     LinkType = "tiktok"
	LinkWaze       LinkType = "waze"
	LinkGoogleMaps LinkType = "google-maps"
	LinkWhatsApp   LinkType = "whatsapp"
	LinkOther      LinkType = "other"
)

// Valid reports whether t is one of the known link types.
func (t LinkType) Valid() bool {
	switch t {
	case LinkInstagram, LinkFacebook, LinkX, LinkTikTok, LinkWaze, LinkGoogleMaps, LinkWhatsApp, LinkOther:
		return true
	}
	return false
}

// FontFamily is the landing page typeface.
type FontFamily string

const (
	FontGeist FontFamily = "geist"
	FontSerif FontFamily = "serif"
	FontMono  FontFamily = "mono"
	FontSans  FontFamily = "sans"
	FontInter FontFamily = "inter"
)

func (f FontFamily) Valid() bool {
	switch f {
	case FontGeist, FontSerif, FontMono, FontSans, FontInter:
		return true
	}
	return false
}

type ThemeConfig struct {
	Background string     `json:"background"`
	Foreground string     `json:"foreground"`
	Primary    string     `json:"primary"`
	Muted      string     `json:"muted"`
	Font       FontFamily `json:"font"`
	Radius     *float64   `json:"radius,omitempty"`
}

// DefaultTheme is what the dashboard offers before an owner picks colors.
func DefaultTheme() ThemeConfig {
	radius := 12.0
	return ThemeConfig{
		Background: "#ffffff",
		Foreground: "#0f172a",
		Primary:    "#2563eb",
		Muted:      "#64748b",
		Font:       FontGeist,
		Radius:     &radius,
	}
}

// TenantLink is one outbound link. Display order is slice order.
type TenantLink struct {
	ID    string   `json:"id"`
	Type  LinkType `json:"type"`
	Href  string   `json:"href"`
	Label *string  `json:"label"`
}

// Tenant is the persisted landing page of a single owner, keyed by its slug.
type Tenant struct {
	TenantID    string       `json:"tenantId" db:"tenant_id"`
	OwnerID     string       `json:"ownerId" db:"owner_id"`
	DisplayName string       `json:"displayName" db:"display_name"`
	Theme       ThemeConfig  `json:"theme" db:"theme"`
	Links       []TenantLink `json:"links" db:"links"`
	Version     int64        `json:"version" db:"version"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// Clone returns a deep copy so callers can merge into it without aliasing
// the link slice or the radius pointer of the original.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	if t.Theme.Radius != nil {
		r := *t.Theme.Radius
		c.Theme.Radius = &r
	}
	c.Links = make([]TenantLink, len(t.Links))
	for i, l := range t.Links {
		c.Links[i] = l
		if l.Label != nil {
			label := *l.Label
			c.Links[i].Label = &label
		}
	}
	return &c
}

// Public projects the tenant to what an anonymous visitor may see.
func (t *Tenant) Public() *PublicTenant {
	if t == nil {
		return nil
	}
	c := t.Clone()
	return &PublicTenant{
		TenantID:    c.TenantID,
		DisplayName: c.DisplayName,
		Theme:       c.Theme,
		Links:       c.Links,
		UpdatedAt:   c.UpdatedAt,
	}
}

// PublicTenant is the landing page view served under /in/{tenantId}. It
// intentionally has no owner field.
type PublicTenant struct {
	TenantID    string       `json:"tenantId"`
	DisplayName string       `json:"displayName"`
	Theme       ThemeConfig  `json:"theme"`
	Links       []TenantLink `json:"links"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
