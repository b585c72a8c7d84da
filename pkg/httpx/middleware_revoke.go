package httpx

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// TokenRevoker blacklists a token id until it would have expired anyway.
type TokenRevoker interface {
	BlacklistToken(ctx context.Context, jti string, exp time.Time) error
}

// BlacklistOnWrite makes bearer tokens single use for writes: after a
// successful POST, PUT, PATCH or DELETE the token that made the call is
// blacklisted. Must run after BearerAuth.
//
// The response is held back until the token is revoked. If that fails the
// client gets a 500 instead, a replayable token is not a success.
func BlacklistOnWrite(enabled bool, revoker TokenRevoker) Middleware {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bufferedWriter{header: w.Header(), status: http.StatusOK}
			next.ServeHTTP(buf, r)

			if buf.status >= 200 && buf.status < 300 {
				if p, ok := PrincipalFromContext(r.Context()); ok {
					if err := revoker.BlacklistToken(r.Context(), p.TokenID, p.ExpiresAt); err != nil {
						slogx.FromContext(r.Context()).Error("blacklist on write failed",
							"jti", p.TokenID,
							"err", err,
						)
						WriteError(w, http.StatusInternalServerError, "server_error", "")
						return
					}
				}
			}

			w.WriteHeader(buf.status)
			_, _ = w.Write(buf.body.Bytes())
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// bufferedWriter shares the real header map but keeps status and body back.
type bufferedWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.status = code
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}
