package models

// Claims is the validated, single-shape view of the issuer's custom claims.
// Roles is always a list even when the issuer sent a bare string.
type Claims struct {
	Roles         []string `json:"roles,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	Provider      string   `json:"provider,omitempty"`
}

// Subject is a verified end-user identity. It is never persisted; the
// session token carries it.
type Subject struct {
	ID     string  `json:"uid"`
	Email  *string `json:"email"`
	Claims Claims  `json:"claims"`
}

// UserProfile is what the dashboard shows for the signed-in user. Only uid
// and email are known to the backend; the rest stays null.
type UserProfile struct {
	UID         string  `json:"uid"`
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
	PhoneNumber *string `json:"phoneNumber"`
	Provider    *string `json:"provider"`
	Locale      *string `json:"locale"`
}
