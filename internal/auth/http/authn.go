package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
)

// bearerValidator adapts the token validator to httpx.BearerAuth.
type bearerValidator struct {
	v *service.TokenValidator
}

func (b bearerValidator) AuthenticateToken(ctx context.Context, raw string) (httpx.Principal, error) {
	tok, err := b.v.Validate(ctx, raw)
	if err != nil {
		var ue *service.UnauthorizedError
		if errors.As(err, &ue) {
			return httpx.Principal{}, fmt.Errorf("%w: %s", httpx.ErrInvalidToken, ue.Reason)
		}
		return httpx.Principal{}, err
	}

	return httpx.Principal{
		MemberID:  tok.Credentials.MemberID,
		Username:  tok.Credentials.Username,
		Role:      tok.Credentials.Role,
		TokenID:   tok.JTI,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

// credentials rebuilds the caller's credentials from the request context.
// Only valid behind BearerAuth.
func credentials(ctx context.Context) (domain.Credentials, bool) {
	p, ok := httpx.PrincipalFromContext(ctx)
	if !ok {
		return domain.Credentials{}, false
	}
	return domain.Credentials{
		MemberID: p.MemberID,
		Username: p.Username,
		Role:     p.Role,
	}, true
}
