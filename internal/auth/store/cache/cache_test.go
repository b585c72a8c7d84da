package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/cache"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/turnstile/internal/auth/store/storetest"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newBackend(t *testing.T, clock *storetest.Clock) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:",
		store.WithClock(clock.Now),
		store.WithRefreshTokenTTL(storetest.TTL),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(context.Background()))
	return s
}

func setupRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mappedPort.Port())
}

// The backend remains authoritative, so with redis in front the whole
// contract must still hold.
func TestContractWithRedis(t *testing.T) {
	addr := setupRedis(t)

	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) store.Store {
		client := redis.NewClient(&redis.Options{Addr: addr})
		require.NoError(t, client.FlushDB(context.Background()).Err())

		s := cache.New(newBackend(t, clock), client, nil, store.WithClock(clock.Now))
		t.Cleanup(func() { _ = client.Close() })
		return s
	})
}

func TestHitIsServedFromRedis(t *testing.T) {
	addr := setupRedis(t)
	ctx := context.Background()
	clock := storetest.NewClock()

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	s := cache.New(newBackend(t, clock), client, nil, store.WithClock(clock.Now))
	jti := uuid.NewString()
	require.NoError(t, s.Blacklist().BlacklistToken(ctx, jti, clock.Now().Add(time.Minute)))

	n, err := client.Exists(ctx, cache.DefaultPrefix+jti).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	ttl, err := client.TTL(ctx, cache.DefaultPrefix+jti).Result()
	require.NoError(t, err)
	require.InDelta(t, (time.Minute + 10*time.Second).Seconds(), ttl.Seconds(), 2)
}

func TestRedisOutageFallsBackToBackend(t *testing.T) {
	ctx := context.Background()
	clock := storetest.NewClock()

	// Nothing listens here, every redis call fails fast
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	s := cache.New(newBackend(t, clock), client, nil, store.WithClock(clock.Now))
	jti := uuid.NewString()

	require.NoError(t, s.Blacklist().BlacklistToken(ctx, jti, clock.Now().Add(time.Minute)))

	ok, err := s.Blacklist().IsTokenBlacklisted(ctx, jti)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Blacklist().IsTokenBlacklisted(ctx, uuid.NewString())
	require.NoError(t, err)
	require.False(t, ok)
}
