package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	principal httpx.Principal
	err       error
	gotRaw    string
}

func (s *stubAuthenticator) AuthenticateToken(_ context.Context, raw string) (httpx.Principal, error) {
	s.gotRaw = raw
	return s.principal, s.err
}

type recordingRevoker struct {
	calls []string
	err   error
}

func (r *recordingRevoker) BlacklistToken(_ context.Context, jti string, _ time.Time) error {
	r.calls = append(r.calls, jti)
	return r.err
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorBody {
	t.Helper()
	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestBearerAuth(t *testing.T) {
	want := httpx.Principal{MemberID: "42", Username: "alice", Role: "auth_0", TokenID: "jti-1"}

	var seen httpx.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token reaches handler", func(t *testing.T) {
		a := &stubAuthenticator{principal: want}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc.def.ghi")
		rec := httptest.NewRecorder()

		httpx.BearerAuth(a)(next).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "abc.def.ghi", a.gotRaw)
		require.Equal(t, want, seen)
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		a := &stubAuthenticator{principal: want}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer abc")
		rec := httptest.NewRecorder()

		httpx.BearerAuth(a)(next).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	for name, header := range map[string]string{
		"missing header": "",
		"basic scheme":   "Basic dXNlcjpwYXNz",
		"empty token":    "Bearer ",
		"two tokens":     "Bearer a b",
		"no scheme":      "abc.def.ghi",
	} {
		t.Run(name+" is a bad request", func(t *testing.T) {
			a := &stubAuthenticator{principal: want}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()

			httpx.BearerAuth(a)(next).ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "invalid_request", decodeError(t, rec).Error)
			require.Empty(t, a.gotRaw, "authenticator must not be called")
		})
	}

	t.Run("token query param is ignored", func(t *testing.T) {
		a := &stubAuthenticator{principal: want}
		req := httptest.NewRequest(http.MethodGet, "/?access_token=abc", nil)
		rec := httptest.NewRecorder()

		httpx.BearerAuth(a)(next).ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejected token is a generic 401", func(t *testing.T) {
		a := &stubAuthenticator{err: fmt.Errorf("%w: verification_failed_jti", httpx.ErrInvalidToken)}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()

		httpx.BearerAuth(a)(next).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeError(t, rec)
		require.Equal(t, "invalid_token", body.Error)
		require.NotContains(t, rec.Body.String(), "jti", "reason must not leak")
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("backend failure is a 500", func(t *testing.T) {
		a := &stubAuthenticator{err: errors.New("db down")}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rec := httptest.NewRecorder()

		httpx.BearerAuth(a)(next).ServeHTTP(rec, req)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := httpx.RequireRole("login_challenge")(next)

	call := func(p *httpx.Principal) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if p != nil {
			req = req.WithContext(httpx.WithPrincipal(req.Context(), *p))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call(&httpx.Principal{Role: "login_challenge"}))
	require.Equal(t, http.StatusForbidden, call(&httpx.Principal{Role: "auth_0"}))
	require.Equal(t, http.StatusForbidden, call(nil))
}

func TestBlacklistOnWrite(t *testing.T) {
	principal := httpx.Principal{MemberID: "42", TokenID: "jti-1", ExpiresAt: time.Now().Add(time.Minute)}

	serve := func(mw httpx.Middleware, method string, status int) *httptest.ResponseRecorder {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteJSON(w, status, map[string]string{"status": "done"})
		}))
		req := httptest.NewRequest(method, "/", nil)
		req = req.WithContext(httpx.WithPrincipal(req.Context(), principal))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("successful write blacklists the token", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
			rev := &recordingRevoker{}
			rec := serve(httpx.BlacklistOnWrite(true, rev), method, http.StatusCreated)

			require.Equal(t, http.StatusCreated, rec.Code, method)
			require.JSONEq(t, `{"status":"done"}`, rec.Body.String())
			require.Equal(t, []string{"jti-1"}, rev.calls, method)
		}
	})

	t.Run("reads are left alone", func(t *testing.T) {
		rev := &recordingRevoker{}
		serve(httpx.BlacklistOnWrite(true, rev), http.MethodGet, http.StatusOK)
		require.Empty(t, rev.calls)
	})

	t.Run("failed writes keep the token", func(t *testing.T) {
		rev := &recordingRevoker{}
		rec := serve(httpx.BlacklistOnWrite(true, rev), http.MethodPost, http.StatusBadRequest)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, rev.calls)
	})

	t.Run("disabled does nothing", func(t *testing.T) {
		rev := &recordingRevoker{}
		serve(httpx.BlacklistOnWrite(false, rev), http.MethodPost, http.StatusOK)
		require.Empty(t, rev.calls)
	})

	t.Run("revocation failure turns into 500", func(t *testing.T) {
		rev := &recordingRevoker{err: errors.New("db down")}
		rec := serve(httpx.BlacklistOnWrite(true, rev), http.MethodPost, http.StatusOK)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "done")
	})
}
