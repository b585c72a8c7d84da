package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrNoTwoFactor    = errors.New("member has no two-factor seed")
	ErrInvalidCode    = errors.New("invalid totp code")
	ErrWrongChallenge = errors.New("credentials are not at this challenge")
)

// RoleUpdater persists a recalculated role on the member's refresh token.
type RoleUpdater interface {
	UpdateRole(ctx context.Context, memberID, role string) error
}

// ChallengeService moves credentials between roles: the calculation right
// after login, and the email/SMS and TOTP challenges after that.
type ChallengeService struct {
	Members      MemberDirectory
	Roles        RoleCalculator
	Tokens       RoleUpdater
	Verification *VerificationService

	// Now defaults to time.Now. Used for TOTP windows.
	Now func() time.Time
}

func (s *ChallengeService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Elevate runs the role calculator over creds and stores the result on the
// refresh token.
func (s *ChallengeService) Elevate(ctx context.Context, member domain.Member, creds domain.Credentials) (domain.Credentials, error) {
	role := s.Roles.CalculateRole(ctx, member, creds.Role)
	if err := s.Tokens.UpdateRole(ctx, member.ID, role); err != nil {
		return domain.Credentials{}, err
	}

	if role != creds.Role {
		slogx.FromContext(ctx).Info("role recalculated",
			slog.String("member_id", member.ID),
			slog.String("from", creds.Role),
			slog.String("to", role),
		)
	}

	return creds.WithRole(role), nil
}

// StartVerification sends a fresh code to the member behind creds.
func (s *ChallengeService) StartVerification(ctx context.Context, creds domain.Credentials, method domain.VerificationMethod) error {
	member, err := s.Members.MemberByID(ctx, creds.MemberID)
	if err != nil {
		return fmt.Errorf("lookup member: %w", err)
	}
	return s.Verification.InitiateVerification(ctx, method, *member)
}

// ConfirmVerification consumes a code. A member sitting at the email
// verification challenge is recalculated from auth_0 afterwards so they
// move on to the next step; every other role is kept.
func (s *ChallengeService) ConfirmVerification(
	ctx context.Context,
	creds domain.Credentials,
	method domain.VerificationMethod,
	token string,
) (domain.Credentials, error) {
	if err := s.Verification.ConsumeToken(ctx, method, creds.MemberID, token); err != nil {
		return domain.Credentials{}, err
	}

	if mv, ok := s.Members.(MemberVerifier); ok {
		if err := mv.MarkVerified(ctx, creds.MemberID, method); err != nil {
			return domain.Credentials{}, fmt.Errorf("mark member verified: %w", err)
		}
	}

	found, err := s.Members.MemberByID(ctx, creds.MemberID)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("lookup member: %w", err)
	}

	// The directory may not record verifications, the code we just
	// consumed is proof enough.
	member := *found
	switch method {
	case domain.VerificationEmail:
		member.EmailVerified = true
	case domain.VerificationSMS:
		member.PhoneVerified = true
	}

	if creds.Role != domain.RoleEmailVerificationChallenge || method != domain.VerificationEmail {
		return creds, nil
	}
	return s.Elevate(ctx, member, creds.WithRole(domain.RoleAuth0))
}

// VerifyTOTP completes the login challenge, handing the member their base
// role.
func (s *ChallengeService) VerifyTOTP(ctx context.Context, creds domain.Credentials, code string) (domain.Credentials, error) {
	if creds.Role != domain.RoleLoginChallenge {
		return domain.Credentials{}, ErrWrongChallenge
	}

	member, err := s.Members.MemberByID(ctx, creds.MemberID)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("lookup member: %w", err)
	}
	if member.TwoFactorSeed == nil || *member.TwoFactorSeed == "" {
		return domain.Credentials{}, ErrNoTwoFactor
	}

	ok, err := totp.ValidateCustom(code, *member.TwoFactorSeed, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		slogx.FromContext(ctx).Info("totp challenge failed", slog.String("member_id", member.ID))
		return domain.Credentials{}, ErrInvalidCode
	}

	role := member.Role
	if role == "" {
		role = domain.RoleAuth0
	}
	if err := s.Tokens.UpdateRole(ctx, member.ID, role); err != nil {
		return domain.Credentials{}, err
	}

	slogx.FromContext(ctx).Info("totp challenge passed", slog.String("member_id", member.ID), slog.String("role", role))
	return creds.WithRole(role), nil
}
