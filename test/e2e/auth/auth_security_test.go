package auth_test

import (
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// TestInvalidCredentials verifies wrong passwords and unknown members get
// the same answer, and inactive members are told so.
func TestInvalidCredentials(t *testing.T) {
	c := setupAuthContainer(t, nil)
	client := authsdk.NewClient(c.BaseURL)

	_, err := client.Login(t.Context(), "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = client.Login(t.Context(), "nobody@example.com", memberPassword)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = client.Login(t.Context(), "dave@example.com", memberPassword)
	require.ErrorIs(t, err, authsdk.ErrMemberNotActive)

	t.Logf("Invalid credentials correctly rejected")
}

// TestInvalidAccessToken verifies the bearer check rejects tokens that were
// not issued by this service.
func TestInvalidAccessToken(t *testing.T) {
	c := setupAuthContainer(t, nil)
	client := authsdk.NewClient(c.BaseURL)

	session := login(t, client, "alice@example.com")

	forged := func(key any, method jwt.SigningMethod, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}

	claims := jwt.MapClaims{
		"sub":  "m-alice",
		"user": "alice",
		"role": "admin",
		"iss":  testIssuer,
		"aud":  []string{testAudience},
		"exp":  4102444800,
		"jti":  "6f1c7d3a-2b9e-4c1f-8a7d-5e4b3c2a1f00",
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "invalid-token-12345"},
		{"other key", forged([]byte("not-our-signing-key-0123456789abcdef"), jwt.SigningMethodHS256, claims)},
		{"alg none", forged(jwt.UnsafeAllowNoneSignatureType, jwt.SigningMethodNone, claims)},
		{"tampered payload", tamper(t, session.Token)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Me(t.Context(), tt.token)
			require.ErrorIs(t, err, authsdk.ErrInvalidToken)
		})
	}
}

// TestMissingBearerToken verifies requests without a credential are bad
// requests, not failed authentications.
func TestMissingBearerToken(t *testing.T) {
	c := setupAuthContainer(t, nil)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, c.BaseURL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic YWxpY2U6cGFzcw==")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// tamper swaps the payload segment for one claiming a different role,
// keeping the original signature.
func tamper(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"role":"member"`, `"role":"admin"`, 1)
	require.NotEqual(t, string(payload), forged)

	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))
	return strings.Join(parts, ".")
}
