package http

import (
	"net/http"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// AuthHandler serves login, refresh and logout.
type AuthHandler struct {
	Auth       *service.Authenticator
	Challenges *service.ChallengeService
	Tokens     *service.TokenService
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges an email and password for an access token and a refresh token.
//	@Description	The access token carries the member's current challenge role (auth_0, email_verification_challenge,
//	@Description	login_challenge) or their own role once every challenge is passed.
//	@Description	An unknown email and a wrong password give the same invalid_credentials answer.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.TokenResponse	"token, refresh_token"
//	@Failure		400		{object}	httpx.ErrorBody			"invalid_request"
//	@Failure		401		{object}	httpx.ErrorBody			"invalid_credentials"
//	@Failure		403		{object}	httpx.ErrorBody			"member_not_active, member_waiting_verification"
//	@Failure		429		{object}	httpx.ErrorBody			"rate_limit_exceeded"
//	@Failure		500		{object}	httpx.ErrorBody			"server_error"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalidRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeInvalidRequest(w, err)
		return
	}

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		log.Error("login failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	if !res.Success {
		writeLoginFailure(w, res.Reason)
		return
	}

	creds, err := h.Challenges.Elevate(ctx, *res.Member, res.Credentials())
	if err != nil {
		log.Error("role calculation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	writeToken(w, r, h.Tokens, creds)
}

// HandleRefresh godoc
//
//	@Summary		Refresh an access token
//	@Description	Mints a new access token from a refresh token. The refresh token is not rotated,
//	@Description	keep using it until it expires or the member logs out.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"refresh_token"
//	@Success		200		{object}	authsdk.TokenResponse	"token"
//	@Failure		400		{object}	httpx.ErrorBody			"invalid_request"
//	@Failure		401		{object}	httpx.ErrorBody			"invalid_grant"
//	@Failure		500		{object}	httpx.ErrorBody			"server_error"
//	@Router			/api/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalidRequest(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeInvalidRequest(w, err)
		return
	}

	res, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		slogx.FromContext(ctx).Error("refresh failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}
	if !res.Success {
		authsdk.ErrInvalidGrant.WithDescription(res.Reason.String()).WriteError(w)
		return
	}

	writeToken(w, r, h.Tokens, res.Credentials())
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Retires the member's refresh token and revokes the access token used for the call.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.StatusResponse	"status: success"
//	@Failure		400	{object}	httpx.ErrorBody			"invalid_request"
//	@Failure		401	{object}	httpx.ErrorBody			"invalid_token"
//	@Failure		500	{object}	httpx.ErrorBody			"server_error"
//	@Router			/api/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if _, err := h.Auth.Logout(ctx, p.MemberID); err != nil {
		log.Error("logout failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if err := h.Auth.BlacklistToken(ctx, p.TokenID, p.ExpiresAt); err != nil {
		log.Error("revoking logout token failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Status: "success"})
}

// writeToken signs a token for creds and writes the token response.
func writeToken(w http.ResponseWriter, r *http.Request, tokens *service.TokenService, creds domain.Credentials) {
	issued, err := tokens.Issue(creds)
	if err != nil {
		slogx.FromContext(r.Context()).Error("issuing token failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenResponse{
		Token:        issued.Token,
		RefreshToken: issued.RefreshToken,
	})
}

func writeLoginFailure(w http.ResponseWriter, reason domain.FailReason) {
	switch reason {
	case domain.FailMemberInactive:
		authsdk.ErrMemberNotActive.WriteError(w)
	case domain.FailMemberAwaitingVerification:
		authsdk.ErrMemberWaitingVerification.WriteError(w)
	default:
		// unknown member and wrong password look the same from outside
		authsdk.ErrInvalidCredentials.WriteError(w)
	}
}
