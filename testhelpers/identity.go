package testhelpers

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TestIssuer signs ID tokens the way the identity provider does and exposes
// the matching JWKS.
type TestIssuer struct {
	ProjectID string
	KeyID     string
	key       *rsa.PrivateKey
	jwks      *keyfunc.JWKS
}

func NewTestIssuer(t *testing.T, projectID string) *TestIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	kid := "test-key-1"

	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to encode JWKS: %v", err)
	}
	jwks, err := keyfunc.NewJSON(raw)
	if err != nil {
		t.Fatalf("Failed to load JWKS: %v", err)
	}

	return &TestIssuer{ProjectID: projectID, KeyID: kid, key: key, jwks: jwks}
}

func (i *TestIssuer) Keyfunc() jwt.Keyfunc {
	return i.jwks.Keyfunc
}

func (i *TestIssuer) Issuer() string {
	return "https://securetoken.google.com/" + i.ProjectID
}

// Claims returns a valid claim set for uid issued at now
func (i *TestIssuer) Claims(uid, email string, now time.Time) jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss":            i.Issuer(),
		"aud":            i.ProjectID,
		"sub":            uid,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"email_verified": true,
		"firebase":       map[string]any{"sign_in_provider": "google.com"},
	}
	if email != "" {
		claims["email"] = email
	}
	return claims
}

func (i *TestIssuer) Sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = i.KeyID
	signed, err := token.SignedString(i.key)
	if err != nil {
		t.Fatalf("Failed to sign ID token: %v", err)
	}
	return signed
}

// SignWithKey signs with an unrelated key under the same kid
func (i *TestIssuer) SignWithKey(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = i.KeyID
	signed, err := token.SignedString(other)
	if err != nil {
		t.Fatalf("Failed to sign ID token: %v", err)
	}
	return signed
}

func (i *TestIssuer) IDToken(t *testing.T, uid, email string, now time.Time) string {
	t.Helper()
	return i.Sign(t, i.Claims(uid, email, now))
}
