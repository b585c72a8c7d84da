// Package storetest is the behaviour suite every store driver has to pass.
// Drivers call Run from their own tests with a factory that builds a fresh,
// migrated store bound to the supplied clock.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TTL is the refresh token lifetime factories should configure.
const TTL = time.Hour

// Clock is a manually advanced clock. Second precision keeps every backend
// honest about boundaries.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Factory builds a fresh store. It must pass store.WithClock(clock.Now) and
// store.WithRefreshTokenTTL(TTL), and register its own cleanup.
type Factory func(t *testing.T, clock *Clock) store.Store

// Run executes the whole contract against the driver.
func Run(t *testing.T, newStore Factory) {
	t.Run("RefreshTokens", func(t *testing.T) { testRefreshTokens(t, newStore) })
	t.Run("Blacklist", func(t *testing.T) { testBlacklist(t, newStore) })
	t.Run("VerificationTokens", func(t *testing.T) { testVerificationTokens(t, newStore) })
}

func testRefreshTokens(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("expire time", func(t *testing.T) {
		s := newStore(t, NewClock())
		require.Equal(t, TTL, s.RefreshTokens().ExpireTime())
	})

	t.Run("create then fetch by id and token", func(t *testing.T) {
		clock := NewClock()
		rt := newStore(t, clock).RefreshTokens()
		token := uuid.NewString()

		require.NoError(t, rt.CreateRefreshToken(ctx, "member-1", token, domain.RoleAuth0))

		byID, err := rt.FetchRefreshTokensByID(ctx, "member-1", false)
		require.NoError(t, err)
		require.Len(t, byID, 1)
		require.Equal(t, token, byID[0].Token)
		require.Equal(t, "member-1", byID[0].ID)
		require.Equal(t, domain.RoleAuth0, byID[0].Role)
		require.Equal(t, domain.RefreshTokenActive, byID[0].Status)
		require.False(t, byID[0].IsExpired)
		require.True(t, clock.Now().Equal(byID[0].IssuedAt))

		byToken, err := rt.FetchRefreshTokensByToken(ctx, token, false)
		require.NoError(t, err)
		require.Equal(t, byID, byToken)
	})

	t.Run("unknown lookups are empty not errors", func(t *testing.T) {
		rt := newStore(t, NewClock()).RefreshTokens()

		byID, err := rt.FetchRefreshTokensByID(ctx, "nobody", true)
		require.NoError(t, err)
		require.Empty(t, byID)

		byToken, err := rt.FetchRefreshTokensByToken(ctx, uuid.NewString(), true)
		require.NoError(t, err)
		require.Empty(t, byToken)
	})

	t.Run("lookups are case sensitive", func(t *testing.T) {
		rt := newStore(t, NewClock()).RefreshTokens()
		require.NoError(t, rt.CreateRefreshToken(ctx, "Member-1", "abc-DEF", "auth_0"))

		got, err := rt.FetchRefreshTokensByID(ctx, "member-1", true)
		require.NoError(t, err)
		require.Empty(t, got)

		got, err = rt.FetchRefreshTokensByToken(ctx, "abc-def", true)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("expiry is derived on read", func(t *testing.T) {
		clock := NewClock()
		rt := newStore(t, clock).RefreshTokens()
		token := uuid.NewString()
		require.NoError(t, rt.CreateRefreshToken(ctx, "member-1", token, "auth_0"))

		// Exactly at the boundary it is still live
		clock.Advance(TTL)
		live, err := rt.FetchRefreshTokensByToken(ctx, token, false)
		require.NoError(t, err)
		require.Len(t, live, 1)
		require.False(t, live[0].IsExpired)

		clock.Advance(time.Second)
		live, err = rt.FetchRefreshTokensByToken(ctx, token, false)
		require.NoError(t, err)
		require.Empty(t, live)

		all, err := rt.FetchRefreshTokensByToken(ctx, token, true)
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.True(t, all[0].IsExpired)
		require.Equal(t, domain.RefreshTokenActive, all[0].Status)
	})

	t.Run("delete expired only touches expired records", func(t *testing.T) {
		clock := NewClock()
		rt := newStore(t, clock).RefreshTokens()
		require.NoError(t, rt.CreateRefreshToken(ctx, "member-1", uuid.NewString(), "auth_0"))

		require.NoError(t, rt.DeleteExpiredRefreshTokens(ctx, "member-1"))
		got, err := rt.FetchRefreshTokensByID(ctx, "member-1", false)
		require.NoError(t, err)
		require.Len(t, got, 1)

		clock.Advance(TTL + time.Second)
		require.NoError(t, rt.DeleteExpiredRefreshTokens(ctx, "member-1"))

		got, err = rt.FetchRefreshTokensByID(ctx, "member-1", true)
		require.NoError(t, err)
		require.Empty(t, got, "DELETED_EXPIRED records are never returned")

		// Slot is free again
		require.NoError(t, rt.CreateRefreshToken(ctx, "member-1", uuid.NewString(), "auth_0"))
	})

	t.Run("invalidate logs out every active record", func(t *testing.T) {
		rt := newStore(t, NewClock()).RefreshTokens()
		token := uuid.NewString()
		require.NoError(t, rt.CreateRefreshToken(ctx, "member-1", token, "auth_0"))

		require.NoError(t, rt.InvalidateActiveRefreshTokens(ctx, "member-1"))
		require.NoError(t, rt.InvalidateActiveRefreshTokens(ctx, "member-1"))
		require.NoError(t, rt.InvalidateActiveRefreshTokens(ctx, "never-logged-in"))

		got, err := rt.FetchRefreshTokensByToken(ctx, token, true)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("update role", func(t *testing.T) {
		rt := newStore(t, NewClock()).RefreshTokens()
		token := uuid.NewString()
		require.NoError(t, rt.CreateRefreshToken(ctx, "member-1", token, "auth_0"))

		require.NoError(t, rt.UpdateRefreshTokenRole(ctx, "member-1", "member"))

		got, err := rt.FetchRefreshTokensByToken(ctx, token, false)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "member", got[0].Role)
	})

	t.Run("second active record is rejected", func(t *testing.T) {
		rt := newStore(t, NewClock()).RefreshTokens()
		require.NoError(t, rt.CreateRefreshToken(ctx, "member-1", uuid.NewString(), "auth_0"))

		err := rt.CreateRefreshToken(ctx, "member-1", uuid.NewString(), "auth_0")
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		// Other members are unaffected
		require.NoError(t, rt.CreateRefreshToken(ctx, "member-2", uuid.NewString(), "auth_0"))
	})

	t.Run("concurrent creates yield one winner", func(t *testing.T) {
		rt := newStore(t, NewClock()).RefreshTokens()

		const n = 8
		var (
			wg      sync.WaitGroup
			won     atomic.Int32
			lost    atomic.Int32
			unknown atomic.Int32
		)
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				switch err := rt.CreateRefreshToken(ctx, "member-1", uuid.NewString(), "auth_0"); {
				case err == nil:
					won.Add(1)
				case errors.Is(err, store.ErrAlreadyExists):
					lost.Add(1)
				default:
					unknown.Add(1)
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, 1, won.Load())
		require.EqualValues(t, n-1, lost.Load())
		require.Zero(t, unknown.Load())

		got, err := rt.FetchRefreshTokensByID(ctx, "member-1", false)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})
}

func testBlacklist(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("blacklisted until grace passes", func(t *testing.T) {
		clock := NewClock()
		bl := newStore(t, clock).Blacklist()
		jti := uuid.NewString()
		exp := clock.Now().Add(time.Minute)

		require.NoError(t, bl.BlacklistToken(ctx, jti, exp))

		ok, err := bl.IsTokenBlacklisted(ctx, jti)
		require.NoError(t, err)
		require.True(t, ok)

		clock.Advance(time.Minute + domain.BlacklistGrace)
		ok, err = bl.IsTokenBlacklisted(ctx, jti)
		require.NoError(t, err)
		require.True(t, ok, "still inside the grace window")

		clock.Advance(time.Second)
		ok, err = bl.IsTokenBlacklisted(ctx, jti)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unknown jti", func(t *testing.T) {
		bl := newStore(t, NewClock()).Blacklist()
		ok, err := bl.IsTokenBlacklisted(ctx, uuid.NewString())
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("repeat blacklisting keeps first expiry", func(t *testing.T) {
		clock := NewClock()
		bl := newStore(t, clock).Blacklist()
		jti := uuid.NewString()

		require.NoError(t, bl.BlacklistToken(ctx, jti, clock.Now().Add(time.Minute)))
		require.NoError(t, bl.BlacklistToken(ctx, jti, clock.Now().Add(time.Hour)))

		clock.Advance(2 * time.Minute)
		ok, err := bl.IsTokenBlacklisted(ctx, jti)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("purge expired", func(t *testing.T) {
		clock := NewClock()
		bl := newStore(t, clock).Blacklist()

		for i := range 3 {
			require.NoError(t, bl.BlacklistToken(ctx, fmt.Sprintf("dead-%d", i), clock.Now()))
		}
		live := uuid.NewString()
		require.NoError(t, bl.BlacklistToken(ctx, live, clock.Now().Add(time.Hour)))

		clock.Advance(time.Minute)
		n, err := bl.PurgeExpired(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 3, n)

		ok, err := bl.IsTokenBlacklisted(ctx, live)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func testVerificationTokens(t *testing.T, newStore Factory) {
	ctx := context.Background()
	valid := domain.VerificationValid
	consumed := domain.VerificationConsumed

	t.Run("store and fetch", func(t *testing.T) {
		clock := NewClock()
		vt := newStore(t, clock).VerificationTokens()
		exp := clock.Now().Add(time.Hour)

		require.NoError(t, vt.StoreVerificationToken(ctx, domain.VerificationToken{
			SubjectID: "member-1",
			Method:    domain.VerificationEmail,
			Token:     "tok",
			Status:    domain.VerificationValid,
			ExpiresAt: &exp,
		}))

		got, err := vt.FetchVerificationToken(ctx, "member-1", domain.VerificationEmail, "tok", &valid)
		require.NoError(t, err)
		require.Equal(t, "member-1", got.SubjectID)
		require.Equal(t, domain.VerificationEmail, got.Method)
		require.Equal(t, domain.VerificationValid, got.Status)
		require.NotNil(t, got.ExpiresAt)
		require.True(t, exp.Equal(*got.ExpiresAt))

		_, err = vt.FetchVerificationToken(ctx, "member-1", domain.VerificationEmail, "tok", &consumed)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = vt.FetchVerificationToken(ctx, "member-1", domain.VerificationSMS, "tok", nil)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("store upserts status", func(t *testing.T) {
		vt := newStore(t, NewClock()).VerificationTokens()
		v := domain.VerificationToken{SubjectID: "member-1", Method: domain.VerificationSMS, Token: "123456", Status: domain.VerificationValid}

		require.NoError(t, vt.StoreVerificationToken(ctx, v))
		v.Status = domain.VerificationInvalid
		require.NoError(t, vt.StoreVerificationToken(ctx, v))

		got, err := vt.FetchVerificationToken(ctx, "member-1", domain.VerificationSMS, "123456", nil)
		require.NoError(t, err)
		require.Equal(t, domain.VerificationInvalid, got.Status)
	})

	t.Run("consume exactly once", func(t *testing.T) {
		vt := newStore(t, NewClock()).VerificationTokens()
		require.NoError(t, vt.StoreVerificationToken(ctx, domain.VerificationToken{
			SubjectID: "member-1", Method: domain.VerificationEmail, Token: "tok", Status: domain.VerificationValid,
		}))

		require.NoError(t, vt.ConsumeVerificationToken(ctx, "member-1", domain.VerificationEmail, "tok"))
		require.ErrorIs(t, vt.ConsumeVerificationToken(ctx, "member-1", domain.VerificationEmail, "tok"), store.ErrNotFound)

		got, err := vt.FetchVerificationToken(ctx, "member-1", domain.VerificationEmail, "tok", nil)
		require.NoError(t, err)
		require.Equal(t, domain.VerificationConsumed, got.Status)
	})

	t.Run("consume rejects mismatches and expiry", func(t *testing.T) {
		clock := NewClock()
		vt := newStore(t, clock).VerificationTokens()
		exp := clock.Now().Add(time.Minute)
		require.NoError(t, vt.StoreVerificationToken(ctx, domain.VerificationToken{
			SubjectID: "member-1", Method: domain.VerificationSMS, Token: "654321", Status: domain.VerificationValid, ExpiresAt: &exp,
		}))

		require.ErrorIs(t, vt.ConsumeVerificationToken(ctx, "member-2", domain.VerificationSMS, "654321"), store.ErrNotFound)
		require.ErrorIs(t, vt.ConsumeVerificationToken(ctx, "member-1", domain.VerificationEmail, "654321"), store.ErrNotFound)
		require.ErrorIs(t, vt.ConsumeVerificationToken(ctx, "member-1", domain.VerificationSMS, "000000"), store.ErrNotFound)

		clock.Advance(2 * time.Minute)
		require.ErrorIs(t, vt.ConsumeVerificationToken(ctx, "member-1", domain.VerificationSMS, "654321"), store.ErrNotFound)

		// Nothing was mutated by the failed attempts
		got, err := vt.FetchVerificationToken(ctx, "member-1", domain.VerificationSMS, "654321", nil)
		require.NoError(t, err)
		require.Equal(t, domain.VerificationValid, got.Status)
	})

	t.Run("concurrent consumers yield one winner", func(t *testing.T) {
		vt := newStore(t, NewClock()).VerificationTokens()
		require.NoError(t, vt.StoreVerificationToken(ctx, domain.VerificationToken{
			SubjectID: "member-1", Method: domain.VerificationEmail, Token: "race", Status: domain.VerificationValid,
		}))

		var (
			wg  sync.WaitGroup
			won atomic.Int32
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := vt.ConsumeVerificationToken(ctx, "member-1", domain.VerificationEmail, "race"); err == nil {
					won.Add(1)
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, 1, won.Load())
	})

	t.Run("delete expired", func(t *testing.T) {
		clock := NewClock()
		vt := newStore(t, clock).VerificationTokens()
		soon := clock.Now().Add(time.Minute)
		later := clock.Now().Add(time.Hour)

		require.NoError(t, vt.StoreVerificationToken(ctx, domain.VerificationToken{SubjectID: "a", Method: domain.VerificationEmail, Token: "1", ExpiresAt: &soon}))
		require.NoError(t, vt.StoreVerificationToken(ctx, domain.VerificationToken{SubjectID: "b", Method: domain.VerificationEmail, Token: "2", ExpiresAt: &later}))
		require.NoError(t, vt.StoreVerificationToken(ctx, domain.VerificationToken{SubjectID: "c", Method: domain.VerificationEmail, Token: "3"}))

		clock.Advance(2 * time.Minute)
		n, err := vt.DeleteExpiredVerificationTokens(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = vt.FetchVerificationToken(ctx, "a", domain.VerificationEmail, "1", nil)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = vt.FetchVerificationToken(ctx, "b", domain.VerificationEmail, "2", nil)
		require.NoError(t, err)
		_, err = vt.FetchVerificationToken(ctx, "c", domain.VerificationEmail, "3", nil)
		require.NoError(t, err)
	})
}
