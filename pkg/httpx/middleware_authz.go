package httpx

import (
	"net/http"
	"strings"
)

// RequireRole lets the request through only when the caller's token was
// issued under one of roles. Must run after BearerAuth.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if ok {
				if _, allowed := want[p.Role]; allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(roles, " ")+`"`)
			WriteError(w, http.StatusForbidden, "access_denied", "role not allowed for this endpoint")
		})
	}
}
