package authsdk

import "time"

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct-horse"`
}

// TokenResponse carries a freshly issued access token. RefreshToken is only
// set by login.
type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" example:"0b6f8c2e-3f7a-4c61-9d8e-1a2b3c4d5e6f"`
}

// StatusResponse is a bare acknowledgement ("success", "sent").
type StatusResponse struct {
	Status string `json:"status"`
}

// ConfirmVerificationRequest is the body of
// POST /api/auth/verify/{method}/confirm.
type ConfirmVerificationRequest struct {
	Token string `json:"token" example:"123456"`
}

// TOTPChallengeRequest is the body of POST /api/auth/challenge/totp.
type TOTPChallengeRequest struct {
	Code string `json:"code" example:"123456"`
}

// MeResponse echoes the credentials behind the caller's token.
type MeResponse struct {
	MemberID  string    `json:"member_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	TokenID   string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status indicates the overall health status ("ok", "degraded")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks is only set by /readyz
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is the per dependency status in /readyz.
type HealthChecks struct {
	Store string `json:"store"`
}
