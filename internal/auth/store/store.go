package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// DefaultRefreshTokenTTL is how long a refresh token is honoured after
// issuance when the driver isn't told otherwise.
const DefaultRefreshTokenTTL = 6 * time.Hour

// Error wraps a backend failure with the operation that produced it. Callers
// must never treat one of these as "not found".
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with op. Sentinel errors and nil pass through untouched so
// errors.Is keeps working for ErrNotFound/ErrAlreadyExists.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsBackendError reports whether err came from the storage backend itself.
func IsBackendError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// Store is the root data access interface. Concrete drivers (sqlite, mongodb)
// implement this and expose sub-repositories to keep concerns tidy. Every
// mutation is a single atomic statement on the backend, so there is no
// transaction handle here.
type Store interface {
	RefreshTokens() RefreshTokens
	Blacklist() Blacklist
	VerificationTokens() VerificationTokens

	// ApplyMigrations brings the schema (or indexes) up to date.
	ApplyMigrations(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error
}

type RefreshTokens interface {
	// ExpireTime is the refresh token lifetime used to derive IsExpired.
	ExpireTime() time.Duration

	// FetchRefreshTokensByID returns the ACTIVE records for a member. Expired
	// records are left out unless includeExpired is set. Empty means none.
	FetchRefreshTokensByID(ctx context.Context, id string, includeExpired bool) ([]domain.RefreshToken, error)

	// FetchRefreshTokensByToken is the same lookup keyed on the token value.
	FetchRefreshTokensByToken(ctx context.Context, token string, includeExpired bool) ([]domain.RefreshToken, error)

	// CreateRefreshToken inserts an ACTIVE record issued now. Returns
	// ErrAlreadyExists when the member already holds an ACTIVE record.
	CreateRefreshToken(ctx context.Context, id, token, role string) error

	// DeleteExpiredRefreshTokens moves the member's expired ACTIVE records
	// to DELETED_EXPIRED.
	DeleteExpiredRefreshTokens(ctx context.Context, id string) error

	// InvalidateActiveRefreshTokens moves every record of the member to
	// LOGGED_OUT, whatever its current status.
	InvalidateActiveRefreshTokens(ctx context.Context, id string) error

	// UpdateRefreshTokenRole sets the role on all of the member's records.
	UpdateRefreshTokenRole(ctx context.Context, id, role string) error
}

type Blacklist interface {
	// BlacklistToken records a revoked jti. Repeat calls are no-ops and the
	// first expiry wins.
	BlacklistToken(ctx context.Context, tokenID string, expiresAt time.Time) error

	// IsTokenBlacklisted is true iff a live entry exists for the jti. Dead
	// entries for that jti are purged on the way.
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)

	// PurgeExpired drops every dead entry (housekeeping).
	PurgeExpired(ctx context.Context) (int64, error)
}

type VerificationTokens interface {
	// StoreVerificationToken upserts on (subject, method, token).
	StoreVerificationToken(ctx context.Context, v domain.VerificationToken) error

	// FetchVerificationToken returns ErrNotFound when no record matches.
	// A nil status matches any status.
	FetchVerificationToken(
		ctx context.Context,
		id string,
		method domain.VerificationMethod,
		token string,
		status *domain.VerificationStatus,
	) (domain.VerificationToken, error)

	// ConsumeVerificationToken flips a valid, unexpired record to consumed
	// in one conditional update. ErrNotFound when nothing was flipped.
	ConsumeVerificationToken(ctx context.Context, id string, method domain.VerificationMethod, token string) error

	// DeleteExpiredVerificationTokens removes records past their expiry
	// (housekeeping).
	DeleteExpiredVerificationTokens(ctx context.Context) (int64, error)
}
