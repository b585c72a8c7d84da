package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/metrics"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
)

// HousekeepingService periodically drops dead blacklist entries and expired
// verification codes. Refresh tokens are retired per member at login, so
// they're not touched here.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// PassTimeout bounds one cleanup pass. Defaults to Interval.
	PassTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// CleanupResult is what one pass removed.
type CleanupResult struct {
	BlacklistPurged    int64
	VerificationPurged int64
}

// NewHousekeepingService defaults a non-positive interval to 1 hour.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{Store: s, Logger: logger, Interval: interval}
}

// Start runs a pass now and then every Interval until Stop. Starting twice
// is a no-op.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop cancels any pass in flight and waits for the worker to exit.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		s.pass(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *HousekeepingService) pass(ctx context.Context) {
	timeout := s.PassTimeout
	if timeout <= 0 {
		timeout = s.Interval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := s.Cleanup(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.Logger.Error("housekeeping pass incomplete", "error", err)
	}
	s.Logger.Info("housekeeping pass done",
		"blacklist_purged", res.BlacklistPurged,
		"verification_tokens_deleted", res.VerificationPurged,
	)
}

// Cleanup runs one pass. A failure in one step doesn't stop the other; the
// errors come back joined.
func (s *HousekeepingService) Cleanup(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult

	purged, errBlacklist := s.Store.Blacklist().PurgeExpired(ctx)
	if errBlacklist == nil {
		res.BlacklistPurged = purged
		metrics.HousekeepingPurgedTotal.WithLabelValues("blacklist").Add(float64(purged))
	}

	deleted, errVerification := s.Store.VerificationTokens().DeleteExpiredVerificationTokens(ctx)
	if errVerification == nil {
		res.VerificationPurged = deleted
		metrics.HousekeepingPurgedTotal.WithLabelValues("verification_token").Add(float64(deleted))
	}

	return res, errors.Join(errBlacklist, errVerification)
}
