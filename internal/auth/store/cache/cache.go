// Package cache fronts a store with a redis revocation cache. Every bearer
// request asks "is this jti blacklisted?", so that question is answered from
// redis first and only falls through to the backend on a miss.
//
// The backend stays the source of truth: writes go there first, and any redis
// failure is logged and answered by the backend instead of surfacing.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "turnstile:blacklist:"

// Store decorates another store. Only Blacklist is intercepted.
type Store struct {
	store.Store

	client redis.UniversalClient
	logger *slog.Logger
	prefix string
	now    func() time.Time
}

// New wraps next. Only the clock from opts is used.
func New(next store.Store, client redis.UniversalClient, logger *slog.Logger, opts ...store.Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	o := store.BuildOptions(opts...)

	return &Store{
		Store:  next,
		client: client,
		logger: logger,
		prefix: DefaultPrefix,
		now:    o.Now,
	}
}

func (s *Store) Blacklist() store.Blacklist {
	return &blacklist{
		next:   s.Store.Blacklist(),
		client: s.client,
		logger: s.logger,
		prefix: s.prefix,
		now:    s.now,
	}
}

// Close closes the redis client and then the backend.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("closing redis client", "error", err)
	}
	return s.Store.Close()
}

type blacklist struct {
	next   store.Blacklist
	client redis.UniversalClient
	logger *slog.Logger
	prefix string
	now    func() time.Time
}

func (b *blacklist) key(tokenID string) string { return b.prefix + tokenID }

func (b *blacklist) BlacklistToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := b.next.BlacklistToken(ctx, tokenID, expiresAt); err != nil {
		return err
	}

	// Mirror the backend's lifetime, grace included. SetNX keeps the first
	// expiry like the backend does.
	ttl := expiresAt.Add(domain.BlacklistGrace).Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.client.SetNX(ctx, b.key(tokenID), 1, ttl).Err(); err != nil {
		b.logger.Warn("revocation cache write failed", "jti", tokenID, "error", err)
	}
	return nil
}

func (b *blacklist) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, b.key(tokenID)).Result()
	switch {
	case err != nil:
		b.logger.Warn("revocation cache read failed, asking backend", "jti", tokenID, "error", err)
	case n > 0:
		return true, nil
	}

	return b.next.IsTokenBlacklisted(ctx, tokenID)
}

// PurgeExpired only touches the backend; redis expires keys on its own.
func (b *blacklist) PurgeExpired(ctx context.Context) (int64, error) {
	return b.next.PurgeExpired(ctx)
}
