package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/turnstile/pkg/httpx"
)

// Error codes on the wire.
const (
	ErrorCodeInvalidRequest            = "invalid_request"
	ErrorCodeInvalidCredentials        = "invalid_credentials"
	ErrorCodeMemberNotActive           = "member_not_active"
	ErrorCodeMemberWaitingVerification = "member_waiting_verification"
	ErrorCodeInvalidGrant              = "invalid_grant"
	ErrorCodeInvalidToken              = "invalid_token"
	ErrorCodeInvalidVerification       = "invalid_verification"
	ErrorCodeAccessDenied              = "access_denied"
	ErrorCodeRateLimitExceeded         = "rate_limit_exceeded"
	ErrorCodeServerError               = "server_error"
)

// APIError is the error envelope of every endpoint. The server writes it
// with WriteError and the client hands it back as a typed error.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine readable error code (e.g. "invalid_credentials")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on Code so errors.Is(err, ErrInvalidCredentials) works on
// anything the client parsed.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WriteError writes this error to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// WithDescription returns a copy with a different description.
func (e *APIError) WithDescription(desc string) *APIError {
	cp := *e
	cp.Description = desc
	return &cp
}

var (
	// ErrInvalidRequest is returned when the body is malformed or fails
	// validation.
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials covers both an unknown member and a wrong
	// password so the response doesn't tell them apart.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid email or password",
	}

	ErrMemberNotActive = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeMemberNotActive,
		Description: "member account is not active",
	}

	ErrMemberWaitingVerification = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeMemberWaitingVerification,
		Description: "member account is waiting for verification",
	}

	// ErrInvalidGrant is returned when a refresh token is unknown, expired
	// or logged out.
	ErrInvalidGrant = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "invalid refresh token",
	}

	// ErrInvalidToken is returned when the access token is invalid,
	// expired or revoked. Deliberately vague.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is invalid, expired or revoked",
	}

	// ErrInvalidVerification is returned when a verification code or TOTP
	// code doesn't check out.
	ErrInvalidVerification = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidVerification,
		Description: "invalid or expired verification code",
	}

	ErrAccessDenied = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "access denied",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env httpx.ErrorBody
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        env.Error,
			Description: env.Description,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
