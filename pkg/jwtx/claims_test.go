package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "auth-service",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("auth-service"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		err := c.ValidateIssuer("chat-service")
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience: []string{"chat", "media"},
		},
	}

	t.Run("contains match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"chat"}))
	})

	t.Run("multiple match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"foo", "media"}))
	})

	t.Run("no match", func(t *testing.T) {
		err := c.ValidateAudience([]string{"admin"})
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("empty expected list", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience(nil))
	})
}

func TestValidateExpiryAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	t.Run("valid token", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(1 * time.Minute)),
			},
		}
		require.NoError(t, claims.ValidateExpiryAt(now))
	})

	t.Run("exactly at exp", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now),
			},
		}
		require.NoError(t, claims.ValidateExpiryAt(now))
		require.ErrorIs(t, claims.ValidateExpiryAt(now.Add(time.Second)), jwtx.ErrExpired)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiryAt(now), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				NotBefore: jwt.NewNumericDate(now.Add(1 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiryAt(now), jwtx.ErrNotYetValid)
	})

	t.Run("missing exp", func(t *testing.T) {
		claims := &jwtx.Claims{}
		require.ErrorIs(t, claims.ValidateExpiryAt(now), jwtx.ErrInvalidClaim)
	})
}

func TestValidateIdentity(t *testing.T) {
	require.NoError(t, (&jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ID: "a", Subject: "b"}}).ValidateIdentity())
	require.ErrorIs(t, (&jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "b"}}).ValidateIdentity(), jwtx.ErrInvalidClaim)
	require.ErrorIs(t, (&jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ID: "a"}}).ValidateIdentity(), jwtx.ErrInvalidClaim)
}

func TestNewAccessClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	c := jwtx.NewAccessClaims("42", "alice", "auth_0", 15*time.Minute, "auth", []string{"api"}, now)

	require.Equal(t, "42", c.Subject)
	require.Equal(t, "alice", c.User)
	require.Equal(t, "auth_0", c.Role)
	require.Equal(t, now, c.IssuedAt.Time)
	require.Equal(t, now.Add(15*time.Minute), c.ExpiresAt.Time)

	_, err := uuid.Parse(c.ID)
	require.NoError(t, err)

	other := jwtx.NewAccessClaims("42", "alice", "auth_0", 15*time.Minute, "auth", []string{"api"}, now)
	require.NotEqual(t, c.ID, other.ID)
}
