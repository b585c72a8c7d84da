package service

import (
	"context"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
)

// DefaultRoleCalculator walks a member up the challenge ladder:
//
//	anonymous -> auth_0 -> email_verification_challenge | login_challenge | member.Role
//
// Any role other than anonymous or auth_0 is left alone.
type DefaultRoleCalculator struct{}

func (DefaultRoleCalculator) CalculateRole(_ context.Context, m domain.Member, current string) string {
	switch current {
	case "", domain.RoleAnonymous:
		return domain.RoleAuth0

	case domain.RoleAuth0:
		if !m.EmailVerified {
			return domain.RoleEmailVerificationChallenge
		}
		if m.TwoFactorSeed != nil && *m.TwoFactorSeed != "" {
			return domain.RoleLoginChallenge
		}
		if m.Role == "" {
			return current
		}
		return m.Role

	default:
		return current
	}
}
