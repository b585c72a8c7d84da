package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/metrics"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/pkg/jwtx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// ErrUnauthorized matches every *UnauthorizedError.
var ErrUnauthorized = errors.New("unauthorized")

// UnauthorizedError is a rejected bearer token. Reason is for logs only,
// callers should not hand it to clients.
type UnauthorizedError struct {
	Reason domain.FailReason
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.Reason.String()
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

func unauthorized(reason domain.FailReason) error {
	return &UnauthorizedError{Reason: reason}
}

type TokenValidatorOptions struct {
	Codec    jwtx.Decoder
	Store    store.Store
	Issuer   string
	Audience string

	// Now defaults to time.Now.
	Now func() time.Time
}

// TokenValidator turns a raw bearer token into credentials, checking
// structure, signature, expiry, issuer/audience and the blacklist in that
// order and stopping at the first failure.
type TokenValidator struct {
	codec    jwtx.Decoder
	store    store.Store
	issuer   string
	audience []string
	now      func() time.Time
}

func NewTokenValidator(opts TokenValidatorOptions) (*TokenValidator, error) {
	switch {
	case opts.Codec == nil:
		return nil, errors.New("token validator: codec is required")
	case opts.Store == nil:
		return nil, errors.New("token validator: store is required")
	case opts.Issuer == "":
		return nil, errors.New("token validator: issuer is required")
	case opts.Audience == "":
		return nil, errors.New("token validator: audience is required")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &TokenValidator{
		codec:    opts.Codec,
		store:    opts.Store,
		issuer:   opts.Issuer,
		audience: []string{opts.Audience},
		now:      now,
	}, nil
}

// Validate returns an *UnauthorizedError for any rejected token. Store
// failures during the blacklist lookup are returned as they are.
func (v *TokenValidator) Validate(ctx context.Context, raw string) (domain.ValidatedToken, error) {
	claims, err := v.codec.Decode(raw)
	if err != nil {
		return v.reject(ctx, domain.FailSignatureInvalid, err)
	}

	if err := claims.ValidateExpiryAt(v.now()); err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return v.reject(ctx, domain.FailTokenExpired, err)
		}
		return v.reject(ctx, domain.FailClaimsInvalid, err)
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return v.reject(ctx, domain.FailClaimsInvalid, err)
	}
	if err := claims.ValidateAudience(v.audience); err != nil {
		return v.reject(ctx, domain.FailClaimsInvalid, err)
	}
	if err := claims.ValidateIdentity(); err != nil {
		return v.reject(ctx, domain.FailClaimsInvalid, err)
	}

	revoked, err := v.store.Blacklist().IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return domain.ValidatedToken{}, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return v.reject(ctx, domain.FailTokenRevoked, nil)
	}

	return domain.ValidatedToken{
		Credentials: domain.Credentials{
			MemberID: claims.Subject,
			Username: claims.User,
			Role:     claims.Role,
		},
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (v *TokenValidator) reject(ctx context.Context, reason domain.FailReason, cause error) (domain.ValidatedToken, error) {
	metrics.ValidationFailuresTotal.WithLabelValues(reason.String()).Inc()

	attrs := []any{slog.String("reason", reason.String())}
	if cause != nil {
		attrs = append(attrs, slog.Any("error", cause))
	}
	slogx.FromContext(ctx).Warn("bearer token rejected", attrs...)

	return domain.ValidatedToken{}, unauthorized(reason)
}
