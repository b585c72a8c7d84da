package auth_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// TestTOTPChallengeFlow tests the second factor for members with a seed:
// 1. Login issues a token with the challenge role only
// 2. The challenge token can't be used for anything else
// 3. A valid TOTP code swaps it for the member's real role
func TestTOTPChallengeFlow(t *testing.T) {
	c := setupAuthContainer(t, nil)
	client := authsdk.NewClient(c.BaseURL)
	ctx := t.Context()

	session := login(t, client, "carol@example.com")
	assertRole(t, client, session.Token, "login_challenge")

	t.Logf("Login returned a challenge token")

	// Wrong code
	code, err := totp.GenerateCode(totpSeed, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	current, err := totp.GenerateCode(totpSeed, time.Now())
	require.NoError(t, err)
	if code == current {
		code = "000000"
		if current == code {
			code = "111111"
		}
	}
	_, err = client.ChallengeTOTP(ctx, session.Token, code)
	require.ErrorIs(t, err, authsdk.ErrInvalidVerification)

	// Right code
	current, err = totp.GenerateCode(totpSeed, time.Now())
	require.NoError(t, err)
	final, err := client.ChallengeTOTP(ctx, session.Token, current)
	require.NoError(t, err)
	require.NotEmpty(t, final.Token)
	assertRole(t, client, final.Token, "admin")

	// The final token can't take the challenge again
	_, err = client.ChallengeTOTP(ctx, final.Token, current)
	require.ErrorIs(t, err, authsdk.ErrAccessDenied)

	t.Logf("TOTP challenge completed")
}

// TestEmailVerificationFlow tests confirming an email address:
// 1. An unverified member logs in with the verification challenge role
// 2. A code is sent (logged) to their address
// 3. Confirming it upgrades the role and later logins skip the step
func TestEmailVerificationFlow(t *testing.T) {
	c := setupAuthContainer(t, nil)
	client := authsdk.NewClient(c.BaseURL)
	ctx := t.Context()

	session := login(t, client, "bob@example.com")
	assertRole(t, client, session.Token, "email_verification_challenge")

	require.NoError(t, client.InitiateVerification(ctx, session.Token, "email"))
	code := c.sentCode(t, "bob@example.com")
	require.NotEmpty(t, code)

	t.Logf("Verification code delivered")

	_, err := client.ConfirmVerification(ctx, session.Token, "email", "not-the-code")
	require.ErrorIs(t, err, authsdk.ErrInvalidVerification)

	confirmed, err := client.ConfirmVerification(ctx, session.Token, "email", code)
	require.NoError(t, err)
	assertRole(t, client, confirmed.Token, "member")

	// Codes are single use
	_, err = client.ConfirmVerification(ctx, session.Token, "email", code)
	require.ErrorIs(t, err, authsdk.ErrInvalidVerification)

	again := login(t, client, "bob@example.com")
	assertRole(t, client, again.Token, "member")

	t.Logf("Email verification completed")
}

// TestInvalidateOnWrite verifies the caller's token is revoked after a
// successful write when the service is configured to do so.
func TestInvalidateOnWrite(t *testing.T) {
	c := setupAuthContainer(t, map[string]string{"AUTH_INVALIDATE_TOKEN_ON_WRITE": "true"})
	client := authsdk.NewClient(c.BaseURL)
	ctx := t.Context()

	session := login(t, client, "bob@example.com")
	require.NoError(t, client.InitiateVerification(ctx, session.Token, "email"))
	code := c.sentCode(t, "bob@example.com")

	confirmed, err := client.ConfirmVerification(ctx, session.Token, "email", code)
	require.NoError(t, err)

	_, err = client.Me(ctx, session.Token)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken, "Token used for the write should be revoked")
	assertRole(t, client, confirmed.Token, "member")
}
