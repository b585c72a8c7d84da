package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/metrics"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
	"github.com/google/uuid"
)

// DefaultRoleOnLogin is the tier every fresh login starts at.
const DefaultRoleOnLogin = domain.RoleAuth0

// ErrMalformedJTI means a caller tried to blacklist something that was never
// one of our jtis. That's a bug, not bad input.
var ErrMalformedJTI = errors.New("malformed jti")

// Authenticator runs login, logout and refresh over the member directory
// and the token store. Domain failures come back in the AuthResult; the
// error return is only for directory and store failures.
type Authenticator struct {
	Members MemberDirectory
	Hasher  PasswordHasher
	Store   store.Store

	// RoleOnLogin defaults to DefaultRoleOnLogin.
	RoleOnLogin string

	// NewRefreshToken defaults to uuid.NewString.
	NewRefreshToken func() string
}

func (a *Authenticator) roleOnLogin() string {
	if a.RoleOnLogin == "" {
		return DefaultRoleOnLogin
	}
	return a.RoleOnLogin
}

func (a *Authenticator) newRefreshToken() string {
	if a.NewRefreshToken == nil {
		return uuid.NewString()
	}
	return a.NewRefreshToken()
}

// Login checks a member's password and hands back their refresh token,
// creating one when they don't hold an active one yet.
func (a *Authenticator) Login(ctx context.Context, usernameOrEmail, password string) (domain.AuthResult, error) {
	l := slogx.FromContext(ctx)

	member, err := a.Members.MemberByUsernameOrEmail(ctx, usernameOrEmail)
	if errors.Is(err, ErrMemberNotFound) {
		return a.loginFailed(ctx, domain.Failed(domain.FailMemberNotFound, nil)), nil
	}
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("lookup member: %w", err)
	}

	if !member.Active {
		if member.AwaitingVerification() {
			return a.loginFailed(ctx, domain.Failed(domain.FailMemberAwaitingVerification, nil)), nil
		}
		return a.loginFailed(ctx, domain.Failed(domain.FailMemberInactive, member)), nil
	}

	if err := a.Hasher.Verify(password, member.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("password verification failed", slog.String("member_id", member.ID), slog.Any("error", err))
		}
		return a.loginFailed(ctx, domain.Failed(domain.FailWrongPassword, member)), nil
	}

	role := a.roleOnLogin()
	token, err := a.loadOrGenerateRefreshToken(ctx, member.ID, role)
	if err != nil {
		return domain.AuthResult{}, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	l.Info("member logged in", slog.String("member_id", member.ID), slog.String("role", role))

	return domain.Succeeded(member, role, token), nil
}

func (a *Authenticator) loginFailed(ctx context.Context, res domain.AuthResult) domain.AuthResult {
	metrics.LoginAttemptsTotal.WithLabelValues(res.Reason.String()).Inc()

	attrs := []any{slog.String("reason", res.Reason.String())}
	if res.Member != nil {
		attrs = append(attrs, slog.String("member_id", res.Member.ID))
	}
	slogx.FromContext(ctx).Info("login failed", attrs...)

	return res
}

// loadOrGenerateRefreshToken returns the member's active refresh token,
// creating one if there is none. Expired records are retired first so they
// never count as "exists". When a concurrent login wins the create, its
// token is returned instead.
func (a *Authenticator) loadOrGenerateRefreshToken(ctx context.Context, memberID, role string) (string, error) {
	rt := a.Store.RefreshTokens()

	if err := rt.DeleteExpiredRefreshTokens(ctx, memberID); err != nil {
		return "", fmt.Errorf("retire expired refresh tokens: %w", err)
	}

	existing, err := rt.FetchRefreshTokensByID(ctx, memberID, false)
	if err != nil {
		return "", fmt.Errorf("fetch refresh tokens: %w", err)
	}
	if len(existing) > 0 {
		return existing[0].Token, nil
	}

	token := a.newRefreshToken()
	err = rt.CreateRefreshToken(ctx, memberID, token, role)
	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, store.ErrAlreadyExists):
		winner, err := rt.FetchRefreshTokensByID(ctx, memberID, false)
		if err != nil {
			return "", fmt.Errorf("fetch refresh tokens: %w", err)
		}
		if len(winner) == 0 {
			return "", fmt.Errorf("refresh token for %s vanished after conflict: %w", memberID, store.ErrNotFound)
		}
		return winner[0].Token, nil
	default:
		return "", fmt.Errorf("create refresh token: %w", err)
	}
}

// Logout retires every active refresh token of the member. Logging out
// twice is fine.
func (a *Authenticator) Logout(ctx context.Context, memberID string) (domain.AuthResult, error) {
	if err := a.Store.RefreshTokens().InvalidateActiveRefreshTokens(ctx, memberID); err != nil {
		return domain.AuthResult{}, fmt.Errorf("invalidate refresh tokens: %w", err)
	}

	metrics.LogoutTotal.Inc()
	slogx.FromContext(ctx).Info("member logged out", slog.String("member_id", memberID))

	return domain.AuthResult{Success: true}, nil
}

// Refresh resolves a refresh token back to its member and the role stored
// with it. The refresh token is not rotated.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (domain.AuthResult, error) {
	records, err := a.Store.RefreshTokens().FetchRefreshTokensByToken(ctx, refreshToken, true)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("fetch refresh token: %w", err)
	}
	if len(records) == 0 {
		return a.refreshFailed(ctx, domain.FailInvalidRefreshToken), nil
	}

	rec := records[0]
	if rec.IsExpired {
		return a.refreshFailed(ctx, domain.FailRefreshTokenExpired), nil
	}

	member, err := a.Members.MemberByID(ctx, rec.ID)
	if errors.Is(err, ErrMemberNotFound) {
		return a.refreshFailed(ctx, domain.FailInvalidRefreshToken), nil
	}
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("lookup member: %w", err)
	}

	metrics.RefreshTotal.WithLabelValues("success").Inc()
	return domain.Succeeded(member, rec.Role, ""), nil
}

func (a *Authenticator) refreshFailed(ctx context.Context, reason domain.FailReason) domain.AuthResult {
	metrics.RefreshTotal.WithLabelValues(reason.String()).Inc()
	slogx.FromContext(ctx).Info("refresh failed", slog.String("reason", reason.String()))
	return domain.Failed(reason, nil)
}

// BlacklistToken revokes an access token by jti until it would have expired
// anyway.
func (a *Authenticator) BlacklistToken(ctx context.Context, jti string, exp time.Time) error {
	if _, err := uuid.Parse(jti); err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedJTI, jti)
	}

	if err := a.Store.Blacklist().BlacklistToken(ctx, jti, exp); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	metrics.TokensBlacklistedTotal.Inc()
	return nil
}

// UpdateRole stores a recalculated role on the member's refresh token, so
// the next refresh hands it back.
func (a *Authenticator) UpdateRole(ctx context.Context, memberID, role string) error {
	if err := a.Store.RefreshTokens().UpdateRefreshTokenRole(ctx, memberID, role); err != nil {
		return fmt.Errorf("update refresh token role: %w", err)
	}
	return nil
}
