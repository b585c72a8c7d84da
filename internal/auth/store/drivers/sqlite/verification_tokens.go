package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
)

type verificationTokensRepo struct {
	db   *sql.DB
	opts store.Options
}

func (r *verificationTokensRepo) StoreVerificationToken(ctx context.Context, v domain.VerificationToken) error {
	status := v.Status
	if status == "" {
		status = domain.VerificationValid
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_token (id, method, token, status, expires)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id, method, token) DO UPDATE SET
			status  = excluded.status,
			expires = COALESCE(excluded.expires, verification_token.expires)`,
		v.SubjectID, string(v.Method), v.Token, string(status), mapOptionalTime(v.ExpiresAt),
	)
	return store.Wrap("store verification token", err)
}

func (r *verificationTokensRepo) FetchVerificationToken(
	ctx context.Context,
	id string,
	method domain.VerificationMethod,
	token string,
	status *domain.VerificationStatus,
) (domain.VerificationToken, error) {
	query := `SELECT id, method, token, status, expires FROM verification_token
		WHERE id = ? AND method = ? AND token = ?`
	args := []any{id, string(method), token}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}

	var (
		v       domain.VerificationToken
		m, st   string
		expires sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&v.SubjectID, &m, &v.Token, &st, &expires)
	if err != nil {
		return domain.VerificationToken{}, store.Wrap("fetch verification token", mapNotFound(err))
	}

	v.Method = domain.VerificationMethod(m)
	v.Status = domain.VerificationStatus(st)
	v.ExpiresAt = mapNullTimePtr(expires)
	return v, nil
}

func (r *verificationTokensRepo) ConsumeVerificationToken(
	ctx context.Context,
	id string,
	method domain.VerificationMethod,
	token string,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE verification_token SET status = 'consumed'
		WHERE id = ? AND method = ? AND token = ? AND status = 'valid'
		  AND (expires IS NULL OR expires >= ?)`,
		id, string(method), token, unix(r.opts.Now()),
	)
	if err != nil {
		return store.Wrap("consume verification token", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return store.Wrap("consume verification token", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *verificationTokensRepo) DeleteExpiredVerificationTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_token WHERE expires IS NOT NULL AND expires < ?`,
		unix(r.opts.Now()),
	)
	if err != nil {
		return 0, store.Wrap("delete expired verification tokens", err)
	}
	n, err := res.RowsAffected()
	return n, store.Wrap("delete expired verification tokens", err)
}
