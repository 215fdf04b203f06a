package models

import "time"

// SessionToken is the opaque session credential handed to the browser.
type SessionToken struct {
	Value     string    `json:"-"`
	SubjectID string    `json:"subject_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session login request
type SessionRequest struct {
	IDToken string `json:"idToken"`
}

// Session login response, mirrors what the dashboard expects
type SessionResponse struct {
	OK    bool    `json:"ok"`
	UID   string  `json:"uid"`
	Email *string `json:"email"`
}
