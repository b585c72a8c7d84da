package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// ErrInvalidToken marks an authentication failure. Authenticators wrap it
// for anything that should be a 401; any other error is treated as a
// server fault.
var ErrInvalidToken = errors.New("httpx: invalid token")

// TokenAuthenticator turns a raw bearer token into a Principal.
type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, raw string) (Principal, error)
}

// BearerAuth requires an "Authorization: Bearer <token>" header. The header
// is the only place we look, tokens in query strings or cookies are ignored.
func BearerAuth(a TokenAuthenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				// The caller didn't send a credential at all, that's a bad
				// request rather than a failed authentication.
				WriteError(w, http.StatusBadRequest, "invalid_request", "missing bearer token")
				return
			}

			p, err := a.AuthenticateToken(ctx, raw)
			switch {
			case errors.Is(err, ErrInvalidToken):
				log.Warn("bearer token rejected", "err", err)
				writeBearerError(w)
				return
			case err != nil:
				log.Error("bearer token check failed", "err", err)
				WriteError(w, http.StatusInternalServerError, "server_error", "")
				return
			}

			ctx = WithPrincipal(ctx, p)
			ctx = slogx.With(ctx, "member_id", p.MemberID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", false
	}
	return raw, true
}

// RFC 6750-compliant error response for bearer auth. The reason stays in
// the logs.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", "")
}
