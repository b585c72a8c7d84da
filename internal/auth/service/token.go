package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/metrics"
	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
)

type TokenServiceOptions struct {
	Signer    jwtx.Signer
	Issuer    string
	Audience  string
	AccessTTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// TokenService mints access tokens for credentials.
type TokenService struct {
	signer    jwtx.Signer
	issuer    string
	audience  []string
	accessTTL time.Duration
	now       func() time.Time
}

func NewTokenService(opts TokenServiceOptions) (*TokenService, error) {
	switch {
	case opts.Signer == nil:
		return nil, errors.New("token service: signer is required")
	case opts.Issuer == "":
		return nil, errors.New("token service: issuer is required")
	case opts.Audience == "":
		return nil, errors.New("token service: audience is required")
	case opts.AccessTTL <= 0:
		return nil, errors.New("token service: access token ttl must be positive")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		signer:    opts.Signer,
		issuer:    opts.Issuer,
		audience:  []string{opts.Audience},
		accessTTL: opts.AccessTTL,
		now:       now,
	}, nil
}

// Issue signs a fresh access token for creds. The refresh token is passed
// through untouched and only set when creds carries one.
func (s *TokenService) Issue(creds domain.Credentials) (domain.IssuedToken, error) {
	claims := jwtx.NewAccessClaims(
		creds.MemberID,
		creds.Username,
		creds.Role,
		s.accessTTL,
		s.issuer,
		s.audience,
		s.now(),
	)

	signed, err := s.signer.Sign(claims)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign access token: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(creds.Role).Inc()

	return domain.IssuedToken{
		Token:        signed,
		RefreshToken: creds.RefreshToken,
		JTI:          claims.ID,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}
