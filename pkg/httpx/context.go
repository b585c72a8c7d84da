package httpx

import (
	"context"
	"time"
)

// Principal is what a verified bearer token says about its caller.
type Principal struct {
	MemberID  string
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the caller set by BearerAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}
