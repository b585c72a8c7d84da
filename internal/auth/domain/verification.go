package domain

import (
	"errors"
	"strings"
	"time"
)

// VerificationMethod is the closed set of delivery channels.
type VerificationMethod string

const (
	VerificationEmail VerificationMethod = "email"
	VerificationSMS   VerificationMethod = "sms"
)

var ErrUnknownVerificationMethod = errors.New("domain: unknown verification method")

// ParseVerificationMethod maps a path segment or config value to a method.
func ParseVerificationMethod(s string) (VerificationMethod, error) {
	switch VerificationMethod(strings.ToLower(strings.TrimSpace(s))) {
	case VerificationEmail:
		return VerificationEmail, nil
	case VerificationSMS:
		return VerificationSMS, nil
	default:
		return "", ErrUnknownVerificationMethod
	}
}

// VerificationStatus moves valid -> consumed (success) or valid -> invalid.
// Nothing ever moves a record back to valid except a fresh store for the same
// (subject, method, token) key.
type VerificationStatus string

const (
	VerificationValid    VerificationStatus = "valid"
	VerificationConsumed VerificationStatus = "consumed"
	VerificationInvalid  VerificationStatus = "invalid"
)

// VerificationToken is keyed by (SubjectID, Method, Token).
type VerificationToken struct {
	SubjectID string
	Method    VerificationMethod
	Token     string
	Status    VerificationStatus
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (v VerificationToken) Expired(now time.Time) bool {
	return v.ExpiresAt != nil && v.ExpiresAt.Before(now)
}

// Usable is true for a valid, unexpired record.
func (v VerificationToken) Usable(now time.Time) bool {
	return v.Status == VerificationValid && !v.Expired(now)
}
