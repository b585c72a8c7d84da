package http

import (
	"net/http"

	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
)

// MeHandler godoc
//
//	@Summary		Who am I
//	@Description	Echoes the credentials carried by the access token.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MeResponse	"member_id, username, role, jti, expires_at"
//	@Failure		400	{object}	httpx.ErrorBody		"invalid_request"
//	@Failure		401	{object}	httpx.ErrorBody		"invalid_token"
//	@Router			/api/auth/me [get].
func MeHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		MemberID:  p.MemberID,
		Username:  p.Username,
		Role:      p.Role,
		TokenID:   p.TokenID,
		ExpiresAt: p.ExpiresAt,
	})
}
