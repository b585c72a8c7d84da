package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// ChallengeHandler serves the verification and TOTP steps that move a
// member off a challenge role.
type ChallengeHandler struct {
	Challenges *service.ChallengeService
	Tokens     *service.TokenService
}

// pathMethod reads {method} and checks it is one we send codes over.
func (h *ChallengeHandler) pathMethod(w http.ResponseWriter, r *http.Request) (domain.VerificationMethod, bool) {
	method, err := domain.ParseVerificationMethod(r.PathValue("method"))
	if err != nil || !h.Challenges.Verification.Supports(method) {
		authsdk.ErrInvalidRequest.WithDescription("unsupported verification method").WriteError(w)
		return "", false
	}
	return method, true
}

// HandleInitiate godoc
//
//	@Summary		Send a verification code
//	@Description	Sends a one-time code to the caller over email or SMS. Sending again issues a new code,
//	@Description	earlier ones stay valid until they expire.
//	@Tags			Verification
//	@Produce		json
//	@Security		BearerAuth
//	@Param			method	path		string					true	"Delivery method"	Enums(email, sms)
//	@Success		202		{object}	authsdk.StatusResponse	"status: sent"
//	@Failure		400		{object}	httpx.ErrorBody			"invalid_request"
//	@Failure		401		{object}	httpx.ErrorBody			"invalid_token"
//	@Failure		500		{object}	httpx.ErrorBody			"server_error"
//	@Router			/api/auth/verify/{method} [post].
func (h *ChallengeHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	method, ok := h.pathMethod(w, r)
	if !ok {
		return
	}
	creds, ok := credentials(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	err := h.Challenges.StartVerification(ctx, creds, method)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusAccepted, authsdk.StatusResponse{Status: "sent"})
	case errors.Is(err, service.ErrNoEmailAddress), errors.Is(err, service.ErrNoPhoneNumber):
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
	default:
		slogx.FromContext(ctx).Error("starting verification failed", "method", method, "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// HandleConfirm godoc
//
//	@Summary		Confirm a verification code
//	@Description	Consumes a code sent by /api/auth/verify/{method}. Each code works once.
//	@Description	Returns a new access token carrying the recalculated role.
//	@Tags			Verification
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			method	path		string								true	"Delivery method"	Enums(email, sms)
//	@Param			request	body		authsdk.ConfirmVerificationRequest	true	"token"
//	@Success		200		{object}	authsdk.TokenResponse				"token"
//	@Failure		400		{object}	httpx.ErrorBody						"invalid_request"
//	@Failure		401		{object}	httpx.ErrorBody						"invalid_token, invalid_verification"
//	@Failure		500		{object}	httpx.ErrorBody						"server_error"
//	@Router			/api/auth/verify/{method}/confirm [post].
func (h *ChallengeHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	method, ok := h.pathMethod(w, r)
	if !ok {
		return
	}
	creds, ok := credentials(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req confirmRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalidRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeInvalidRequest(w, err)
		return
	}

	next, err := h.Challenges.ConfirmVerification(ctx, creds, method, req.Token)
	switch {
	case err == nil:
		writeToken(w, r, h.Tokens, next)
	case errors.Is(err, service.ErrInvalidToken):
		authsdk.ErrInvalidVerification.WriteError(w)
	default:
		slogx.FromContext(ctx).Error("confirming verification failed", "method", method, "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// HandleTOTP godoc
//
//	@Summary		Pass the login challenge
//	@Description	Checks a TOTP code from the member's authenticator app and returns an access token
//	@Description	carrying the member's own role. Only accepted from a login_challenge token.
//	@Tags			Verification
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.TOTPChallengeRequest	true	"code"
//	@Success		200		{object}	authsdk.TokenResponse			"token"
//	@Failure		400		{object}	httpx.ErrorBody					"invalid_request"
//	@Failure		401		{object}	httpx.ErrorBody					"invalid_token, invalid_verification"
//	@Failure		403		{object}	httpx.ErrorBody					"access_denied"
//	@Failure		500		{object}	httpx.ErrorBody					"server_error"
//	@Router			/api/auth/challenge/totp [post].
func (h *ChallengeHandler) HandleTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	creds, ok := credentials(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req totpRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalidRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeInvalidRequest(w, err)
		return
	}

	next, err := h.Challenges.VerifyTOTP(ctx, creds, req.Code)
	switch {
	case err == nil:
		writeToken(w, r, h.Tokens, next)
	case errors.Is(err, service.ErrInvalidCode):
		authsdk.ErrInvalidVerification.WriteError(w)
	case errors.Is(err, service.ErrWrongChallenge), errors.Is(err, service.ErrNoTwoFactor):
		authsdk.ErrAccessDenied.WriteError(w)
	default:
		slogx.FromContext(ctx).Error("totp challenge failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
