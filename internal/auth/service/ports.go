package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
)

// ErrMemberNotFound is what a MemberDirectory returns for an unknown member.
// Any other error is treated as a backend failure.
var ErrMemberNotFound = errors.New("member not found")

// MemberDirectory looks members up. Members are owned elsewhere; we only read
// them.
type MemberDirectory interface {
	MemberByID(ctx context.Context, id string) (*domain.Member, error)
	MemberByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.Member, error)
}

// MemberVerifier is implemented by directories that can record a completed
// verification. Directories that can't are left alone.
type MemberVerifier interface {
	MarkVerified(ctx context.Context, memberID string, method domain.VerificationMethod) error
}

// PasswordHasher checks a password against a stored hash. Any error means
// the password is wrong.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) error
}

type EmailSender interface {
	SendVerificationEmail(ctx context.Context, address, name, token string) error
}

type SMSSender interface {
	SendVerificationSMS(ctx context.Context, number, name, token string) error
}

// RoleCalculator decides the role a member should carry next, given the role
// their current credentials hold.
type RoleCalculator interface {
	CalculateRole(ctx context.Context, member domain.Member, current string) string
}
