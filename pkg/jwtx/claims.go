package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL is the default lifetime for access tokens. Keep it
// short, revocation only lives as long as the token does.
const DefaultAccessTokenTTL = 15 * time.Minute

// Claims are the access-token claims. The registered set carries sub, iss,
// aud, iat, exp and jti; the rest is ours.
type Claims struct {
	jwt.RegisteredClaims

	// User is the display name of the member, never used for lookups
	User string `json:"user,omitempty"`

	// Role the token was issued under ("auth_0", "login_challenge", ...)
	Role string `json:"role,omitempty"`
}

// NewAccessClaims builds minimally-correct claims with a fresh jti.
func NewAccessClaims(
	subject, user, role string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		User: user,
		Role: role,
	}
}

// NewJTI returns a random UUID v4 for the "jti" claim. The blacklist keys
// on it so it has to stay parseable as a UUID.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiryAt checks exp and nbf against now. A token is still good at
// the exact second it expires.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	if now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateIdentity makes sure the claims we key on are present.
func (c *Claims) ValidateIdentity() error {
	if c.ID == "" || c.Subject == "" {
		return ErrInvalidClaim
	}
	return nil
}
