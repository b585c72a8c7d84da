package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
)

type refreshTokensRepo struct {
	db   *sql.DB
	opts store.Options
}

// is_expired is computed in SQL so both lookups agree on the boundary:
// a token issued exactly ttl seconds ago is still live.
const selectRefreshToken = `
SELECT id, token, role, status, issued_at,
       CASE WHEN issued_at + ? < ? THEN 1 ELSE 0 END AS is_expired
FROM refresh_token
WHERE status = 'ACTIVE'`

func (r *refreshTokensRepo) ExpireTime() time.Duration { return r.opts.RefreshTokenTTL }

func (r *refreshTokensRepo) FetchRefreshTokensByID(
	ctx context.Context,
	id string,
	includeExpired bool,
) ([]domain.RefreshToken, error) {
	rows, err := r.fetch(ctx, "id", id, includeExpired)
	return rows, store.Wrap("fetch refresh tokens by id", err)
}

func (r *refreshTokensRepo) FetchRefreshTokensByToken(
	ctx context.Context,
	token string,
	includeExpired bool,
) ([]domain.RefreshToken, error) {
	rows, err := r.fetch(ctx, "token", token, includeExpired)
	return rows, store.Wrap("fetch refresh tokens by token", err)
}

func (r *refreshTokensRepo) fetch(
	ctx context.Context,
	column, value string,
	includeExpired bool,
) ([]domain.RefreshToken, error) {
	ttl := ttlSeconds(r.opts.RefreshTokenTTL)
	now := unix(r.opts.Now())

	// column is one of two constants above, never caller input
	query := selectRefreshToken + ` AND ` + column + ` = ?`
	args := []any{ttl, now, value}
	if !includeExpired {
		query += ` AND issued_at + ? >= ?`
		args = append(args, ttl, now)
	}
	query += ` ORDER BY issued_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		var (
			t        domain.RefreshToken
			status   string
			issuedAt int64
			expired  int
		)
		if err := rows.Scan(&t.ID, &t.Token, &t.Role, &status, &issuedAt, &expired); err != nil {
			return nil, err
		}
		t.Status = domain.RefreshTokenStatus(status)
		t.IssuedAt = fromUnix(issuedAt)
		t.IsExpired = expired == 1
		out = append(out, t)
	}

	return out, rows.Err()
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, id, token, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_token (token, id, role, status, issued_at) VALUES (?, ?, ?, 'ACTIVE', ?)`,
		token, id, role, unix(r.opts.Now()),
	)
	return store.Wrap("create refresh token", mapConstraint(err))
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_token SET status = 'DELETED_EXPIRED'
		 WHERE id = ? AND status = 'ACTIVE' AND issued_at + ? < ?`,
		id, ttlSeconds(r.opts.RefreshTokenTTL), unix(r.opts.Now()),
	)
	return store.Wrap("delete expired refresh tokens", err)
}

func (r *refreshTokensRepo) InvalidateActiveRefreshTokens(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_token SET status = 'LOGGED_OUT' WHERE id = ?`,
		id,
	)
	return store.Wrap("invalidate active refresh tokens", err)
}

func (r *refreshTokensRepo) UpdateRefreshTokenRole(ctx context.Context, id, role string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_token SET role = ? WHERE id = ?`,
		role, id,
	)
	return store.Wrap("update refresh token role", err)
}
