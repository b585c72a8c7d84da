package store

import "time"

// Options are the knobs every driver understands.
type Options struct {
	// RefreshTokenTTL is the refresh token lifetime (getExpireTime).
	RefreshTokenTTL time.Duration

	// Now is the clock used for issued_at stamps and every expiry check.
	Now func() time.Time
}

type Option func(*Options)

// WithRefreshTokenTTL overrides DefaultRefreshTokenTTL. Non-positive values
// are ignored.
func WithRefreshTokenTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.RefreshTokenTTL = ttl
		}
	}
}

// WithClock swaps the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{
		RefreshTokenTTL: DefaultRefreshTokenTTL,
		Now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
