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
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
)

// ErrInvalidToken is returned when a verification code doesn't match a
// valid, unexpired record.
var ErrInvalidToken = errors.New("invalid verification token")

// VerificationStrategy generates and delivers codes for one method.
type VerificationStrategy interface {
	Method() domain.VerificationMethod
	GenerateToken() (string, error)
	ExpiresAfter() time.Duration
	Send(ctx context.Context, member domain.Member, token string) error
}

// VerificationService runs the valid -> consumed lifecycle of one-time
// codes. Strategies are fixed at construction.
type VerificationService struct {
	store      store.Store
	strategies map[domain.VerificationMethod]VerificationStrategy
	now        func() time.Time
}

func NewVerificationService(s store.Store, strategies ...VerificationStrategy) *VerificationService {
	m := make(map[domain.VerificationMethod]VerificationStrategy, len(strategies))
	for _, st := range strategies {
		m[st.Method()] = st
	}
	return &VerificationService{store: s, strategies: m, now: time.Now}
}

// WithClock swaps the clock used for expiry stamps.
func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	s.now = now
	return s
}

// Supports reports whether a strategy is registered for method.
func (s *VerificationService) Supports(method domain.VerificationMethod) bool {
	_, ok := s.strategies[method]
	return ok
}

// InitiateVerification stores a fresh valid code for the member and sends
// it. The code is stored before it is sent; a failed send leaves it valid.
func (s *VerificationService) InitiateVerification(ctx context.Context, method domain.VerificationMethod, member domain.Member) error {
	st, ok := s.strategies[method]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownVerificationMethod, method)
	}

	token, err := st.GenerateToken()
	if err != nil {
		return fmt.Errorf("generate %s token: %w", method, err)
	}

	var expires *time.Time
	if ttl := st.ExpiresAfter(); ttl > 0 {
		t := s.now().Add(ttl)
		expires = &t
	}

	err = s.store.VerificationTokens().StoreVerificationToken(ctx, domain.VerificationToken{
		SubjectID: member.ID,
		Method:    method,
		Token:     token,
		Status:    domain.VerificationValid,
		ExpiresAt: expires,
	})
	if err != nil {
		return fmt.Errorf("store %s token: %w", method, err)
	}

	if err := st.Send(ctx, member, token); err != nil {
		return fmt.Errorf("send %s token: %w", method, err)
	}

	metrics.VerificationsInitiatedTotal.WithLabelValues(string(method)).Inc()
	slogx.FromContext(ctx).Info("verification initiated",
		slog.String("member_id", member.ID),
		slog.String("method", string(method)),
	)

	return nil
}

// IsValidToken reports whether the code is valid and unexpired. Read only.
func (s *VerificationService) IsValidToken(ctx context.Context, method domain.VerificationMethod, subjectID, token string) (bool, error) {
	v, err := s.store.VerificationTokens().FetchVerificationToken(ctx, subjectID, method, token, nil)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetch verification token: %w", err)
	}
	return v.Usable(s.now()), nil
}

// ConsumeToken moves a valid code to consumed. Only one caller can consume
// a given code; everyone else gets ErrInvalidToken.
func (s *VerificationService) ConsumeToken(ctx context.Context, method domain.VerificationMethod, subjectID, token string) error {
	err := s.store.VerificationTokens().ConsumeVerificationToken(ctx, subjectID, method, token)
	if errors.Is(err, store.ErrNotFound) {
		metrics.VerificationsConsumedTotal.WithLabelValues(string(method), "invalid").Inc()
		slogx.FromContext(ctx).Info("verification token rejected",
			slog.String("member_id", subjectID),
			slog.String("method", string(method)),
		)
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}

	metrics.VerificationsConsumedTotal.WithLabelValues(string(method), "consumed").Inc()
	return nil
}
