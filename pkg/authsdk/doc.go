/*
Package authsdk is the client for the turnstile authentication service, and
the home of the wire types and error envelope the service itself writes.

# Logging in

	client := authsdk.NewClient("https://auth.example.com")

	tok, err := client.Login(ctx, "alice@example.com", "correct-horse")
	if errors.Is(err, authsdk.ErrInvalidCredentials) {
		// unknown email or wrong password, the service won't say which
	}

tok.Token is a short lived bearer token, tok.RefreshToken lives for hours
and is exchanged for new bearer tokens with Refresh. Refresh does not rotate
the refresh token, keep using the one from Login until Logout.

# Roles and challenges

A fresh login token may carry a challenge role instead of the member's own:

  - email_verification_challenge: the email address hasn't been verified,
    call InitiateVerification(ctx, tok, "email") then ConfirmVerification
    with the code that arrives.
  - login_challenge: the member has two-factor enabled, call ChallengeTOTP
    with the current code from their authenticator app.

Both calls return a new token carrying the recalculated role. When the
service runs with token-on-write invalidation, the token used for any
successful write is blacklisted, so always continue with the returned one.

# Errors

Every non-2xx response comes back as an *APIError. Compare with errors.Is
against the predefined values (ErrInvalidToken, ErrInvalidGrant, ...),
which match on the error code.
*/
package authsdk
