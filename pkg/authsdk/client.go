package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the auth service. It holds no tokens itself, callers pass
// the access token to each authenticated call.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges an email and password for an access token and a refresh
// token.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh mints a new access token. The refresh token itself is not rotated.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the member's session, invalidating their refresh token.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/logout", accessToken, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// Me returns the credentials behind accessToken.
func (c *Client) Me(ctx context.Context, accessToken string) (*MeResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/auth/me", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitiateVerification asks the service to send a code over method
// ("email" or "sms").
func (c *Client) InitiateVerification(ctx context.Context, accessToken, method string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/verify/"+url.PathEscape(method), accessToken, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusAccepted)
}

// ConfirmVerification submits the code the member received and returns a
// token carrying their recalculated role.
func (c *Client) ConfirmVerification(ctx context.Context, accessToken, method, code string) (*TokenResponse, error) {
	resp, err := c.do(ctx, http.MethodPost,
		"/api/auth/verify/"+url.PathEscape(method)+"/confirm",
		accessToken,
		ConfirmVerificationRequest{Token: code},
	)
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChallengeTOTP completes the login challenge with a TOTP code.
func (c *Client) ChallengeTOTP(ctx context.Context, accessToken, code string) (*TokenResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/challenge/totp", accessToken, TOTPChallengeRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var out TokenResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
