package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
)

type blacklistRepo struct {
	db   *sql.DB
	opts store.Options
}

var graceSeconds = ttlSeconds(domain.BlacklistGrace)

func (r *blacklistRepo) BlacklistToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blacklist_token (token_id, expires) VALUES (?, ?) ON CONFLICT (token_id) DO NOTHING`,
		tokenID, unix(expiresAt),
	)
	return store.Wrap("blacklist token", err)
}

func (r *blacklistRepo) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	now := unix(r.opts.Now())

	// Lazy purge of this jti only; PurgeExpired handles the rest
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM blacklist_token WHERE token_id = ? AND expires + ? < ?`,
		tokenID, graceSeconds, now,
	); err != nil {
		return false, store.Wrap("purge blacklisted token", err)
	}

	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM blacklist_token WHERE token_id = ? AND expires + ? >= ?`,
		tokenID, graceSeconds, now,
	).Scan(&n)
	if err != nil {
		return false, store.Wrap("is token blacklisted", err)
	}

	return n > 0, nil
}

func (r *blacklistRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM blacklist_token WHERE expires + ? < ?`,
		graceSeconds, unix(r.opts.Now()),
	)
	if err != nil {
		return 0, store.Wrap("purge blacklist", err)
	}
	n, err := res.RowsAffected()
	return n, store.Wrap("purge blacklist", err)
}
