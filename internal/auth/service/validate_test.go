package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/storetest"
	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://auth.example.com"
	testAudience = "api.example.com"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newSQLiteStore(t *testing.T, clock *storetest.Clock) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:", store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(context.Background()))
	return s
}

type pipeline struct {
	clock     *storetest.Clock
	store     store.Store
	codec     *jwtx.HS256Codec
	tokens    *TokenService
	validator *TokenValidator
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	clock := storetest.NewClock()
	s := newSQLiteStore(t, clock)

	codec, err := jwtx.NewHS256Codec(testKey)
	require.NoError(t, err)

	tokens, err := NewTokenService(TokenServiceOptions{
		Signer:    codec,
		Issuer:    testIssuer,
		Audience:  testAudience,
		AccessTTL: 15 * time.Minute,
		Now:       clock.Now,
	})
	require.NoError(t, err)

	validator, err := NewTokenValidator(TokenValidatorOptions{
		Codec:    codec,
		Store:    s,
		Issuer:   testIssuer,
		Audience: testAudience,
		Now:      clock.Now,
	})
	require.NoError(t, err)

	return &pipeline{clock: clock, store: s, codec: codec, tokens: tokens, validator: validator}
}

func requireReason(t *testing.T, err error, want domain.FailReason) {
	t.Helper()

	require.ErrorIs(t, err, ErrUnauthorized)
	var ue *UnauthorizedError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, want, ue.Reason)
}

func TestIssueThenValidateRoundTrip(t *testing.T) {
	p := newPipeline(t)

	issued, err := p.tokens.Issue(domain.Credentials{MemberID: "S", Username: "U", Role: "R", RefreshToken: "rt"})
	require.NoError(t, err)
	require.Equal(t, "rt", issued.RefreshToken)
	require.True(t, p.clock.Now().Add(15*time.Minute).Equal(issued.ExpiresAt))

	got, err := p.validator.Validate(context.Background(), issued.Token)
	require.NoError(t, err)
	require.Equal(t, domain.Credentials{MemberID: "S", Username: "U", Role: "R"}, got.Credentials)
	require.Equal(t, issued.JTI, got.JTI)
	require.True(t, issued.ExpiresAt.Equal(got.ExpiresAt))
}

func TestIssueOmitsMissingRefreshToken(t *testing.T) {
	p := newPipeline(t)

	issued, err := p.tokens.Issue(domain.Credentials{MemberID: "S", Role: "R"})
	require.NoError(t, err)
	require.Empty(t, issued.RefreshToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	p := newPipeline(t)

	issued, err := p.tokens.Issue(domain.Credentials{MemberID: "S", Username: "U", Role: "R"})
	require.NoError(t, err)

	p.clock.Advance(15*time.Minute + time.Second)

	_, err = p.validator.Validate(context.Background(), issued.Token)
	requireReason(t, err, domain.FailTokenExpired)
}

func TestValidateRejectsBlacklistedToken(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	issued, err := p.tokens.Issue(domain.Credentials{MemberID: "S", Username: "U", Role: "R"})
	require.NoError(t, err)

	auth := &Authenticator{Store: p.store}
	require.NoError(t, auth.BlacklistToken(ctx, issued.JTI, issued.ExpiresAt))

	_, err = p.validator.Validate(ctx, issued.Token)
	requireReason(t, err, domain.FailTokenRevoked)

	// blacklisting twice is a no-op
	require.NoError(t, auth.BlacklistToken(ctx, issued.JTI, issued.ExpiresAt))
}

func TestValidateRejectsBadTokens(t *testing.T) {
	p := newPipeline(t)
	now := p.clock.Now()

	sign := func(t *testing.T, c jwtx.Claims) string {
		t.Helper()
		tok, err := p.codec.Sign(c)
		require.NoError(t, err)
		return tok
	}
	claims := func() jwtx.Claims {
		return jwtx.NewAccessClaims("S", "U", "R", time.Minute, testIssuer, []string{testAudience}, now)
	}

	other, err := jwtx.NewHS256Codec([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)
	foreign, err := other.Sign(claims())
	require.NoError(t, err)

	wrongIssuer := claims()
	wrongIssuer.Issuer = "https://evil.example.com"

	wrongAudience := claims()
	wrongAudience.Audience = jwt.ClaimStrings{"other-api"}

	noJTI := claims()
	noJTI.ID = ""

	noSub := claims()
	noSub.Subject = ""

	noExp := claims()
	noExp.ExpiresAt = nil

	// expiry is checked before the issuer
	expiredAndWrongIssuer := jwtx.NewAccessClaims("S", "U", "R", time.Minute, "nope", []string{testAudience}, now.Add(-time.Hour))

	tests := []struct {
		name  string
		token string
		want  domain.FailReason
	}{
		{"garbage", "not.a.jwt", domain.FailSignatureInvalid},
		{"empty", "", domain.FailSignatureInvalid},
		{"other key", foreign, domain.FailSignatureInvalid},
		{"wrong issuer", sign(t, wrongIssuer), domain.FailClaimsInvalid},
		{"wrong audience", sign(t, wrongAudience), domain.FailClaimsInvalid},
		{"missing jti", sign(t, noJTI), domain.FailClaimsInvalid},
		{"missing sub", sign(t, noSub), domain.FailClaimsInvalid},
		{"missing exp", sign(t, noExp), domain.FailClaimsInvalid},
		{"expired before issuer", sign(t, expiredAndWrongIssuer), domain.FailTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.validator.Validate(context.Background(), tt.token)
			requireReason(t, err, tt.want)
		})
	}
}

func TestValidatePropagatesStoreErrors(t *testing.T) {
	codec, err := jwtx.NewHS256Codec(testKey)
	require.NoError(t, err)

	s := newMockStore()
	boom := store.Wrap("is_blacklisted", errors.New("connection reset"))
	s.bl.On("IsTokenBlacklisted", mock.Anything, mock.Anything).Return(false, boom)

	v, err := NewTokenValidator(TokenValidatorOptions{Codec: codec, Store: s, Issuer: testIssuer, Audience: testAudience})
	require.NoError(t, err)

	tok, err := codec.Sign(jwtx.NewAccessClaims("S", "U", "R", time.Minute, testIssuer, []string{testAudience}, time.Now()))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), tok)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
	require.True(t, store.IsBackendError(err))
}

func TestConstructorsRequireConfiguration(t *testing.T) {
	codec, err := jwtx.NewHS256Codec(testKey)
	require.NoError(t, err)
	s := newMockStore()

	_, err = NewTokenValidator(TokenValidatorOptions{Store: s, Issuer: testIssuer, Audience: testAudience})
	require.Error(t, err)
	_, err = NewTokenValidator(TokenValidatorOptions{Codec: codec, Issuer: testIssuer, Audience: testAudience})
	require.Error(t, err)
	_, err = NewTokenValidator(TokenValidatorOptions{Codec: codec, Store: s, Audience: testAudience})
	require.Error(t, err)
	_, err = NewTokenValidator(TokenValidatorOptions{Codec: codec, Store: s, Issuer: testIssuer})
	require.Error(t, err)

	_, err = NewTokenService(TokenServiceOptions{Signer: codec, Issuer: testIssuer, Audience: testAudience})
	require.Error(t, err, "ttl is required")
	_, err = NewTokenService(TokenServiceOptions{Issuer: testIssuer, Audience: testAudience, AccessTTL: time.Minute})
	require.Error(t, err)
}
