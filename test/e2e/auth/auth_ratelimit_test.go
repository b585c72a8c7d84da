package auth_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// requireRateLimited asserts err is the 429 envelope.
func requireRateLimited(t *testing.T, err error) {
	t.Helper()
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected an API error, got %v", err)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeRateLimitExceeded, apiErr.Code)
}

// TestRateLimitLoginEndpoint verifies that /api/auth/login is rate limited
// per address and email. This endpoint has strict limits (5 req/min) to
// slow down password guessing.
func TestRateLimitLoginEndpoint(t *testing.T) {
	c := setupAuthContainerWithDefaultRateLimits(t)
	client := authsdk.NewClient(c.BaseURL)
	ctx := t.Context()

	// First 5 should fail with authentication error (not rate limit)
	for i := range 5 {
		_, err := client.Login(ctx, "alice@example.com", "wrong-password")
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials, "Should not be rate limited yet (request %d)", i+1)
	}

	// 6th request should be rate limited, even with the right password
	_, err := client.Login(ctx, "alice@example.com", memberPassword)
	requireRateLimited(t, err)
	t.Logf("Successfully rate limited after 5 requests to /api/auth/login")

	// Another member from the same address has their own bucket
	login(t, client, "carol@example.com")
}

// TestRateLimitRefreshEndpoint verifies that /api/auth/refresh is rate limited.
func TestRateLimitRefreshEndpoint(t *testing.T) {
	c := setupAuthContainerWithDefaultRateLimits(t)
	client := authsdk.NewClient(c.BaseURL)
	ctx := t.Context()

	for range 5 {
		_, err := client.Refresh(ctx, "0b7e4b52-1f7c-4f43-9a55-3f0c7ad5e0a1")
		require.ErrorIs(t, err, authsdk.ErrInvalidGrant)
	}

	_, err := client.Refresh(ctx, "0b7e4b52-1f7c-4f43-9a55-3f0c7ad5e0a1")
	requireRateLimited(t, err)
	t.Logf("Successfully rate limited after 5 requests to /api/auth/refresh")
}

// TestHealthEndpointsNotStrictlyLimited verifies probes get the public
// limit, well above anything an orchestrator sends.
func TestHealthEndpointsNotStrictlyLimited(t *testing.T) {
	c := setupAuthContainerWithDefaultRateLimits(t)
	client := authsdk.NewClient(c.BaseURL)
	ctx := t.Context()

	for i := range 20 {
		health, err := client.GetLiveness(ctx)
		assertHealthy(t, health, err)

		health, err = client.GetReadiness(ctx)
		require.NoError(t, err, "Readiness request %d should not be limited", i+1)
		require.Equal(t, "ok", health.Status)
	}

	t.Logf("Health endpoints are not limited by the strict limiter")
}
