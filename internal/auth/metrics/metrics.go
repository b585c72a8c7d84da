// Package metrics holds the prometheus collectors for the auth service. They
// register on the default registry, which /metrics serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "turnstile"

var (
	// LoginAttemptsTotal counts logins by outcome ("success" or the fail
	// reason tag).
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome",
	}, []string{"outcome"})

	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refresh_total",
		Help:      "Access token refreshes by outcome",
	}, []string{"outcome"})

	LogoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logout_total",
		Help:      "Logouts",
	})

	// TokensIssuedTotal counts access tokens by the role they carry.
	TokensIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Access tokens issued by role",
	}, []string{"role"})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validation_failures_total",
		Help:      "Bearer tokens rejected by reason",
	}, []string{"reason"})

	TokensBlacklistedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_blacklisted_total",
		Help:      "Access tokens added to the blacklist",
	})

	VerificationsInitiatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_initiated_total",
		Help:      "Verification codes sent by method",
	}, []string{"method"})

	// VerificationsConsumedTotal counts consume attempts by method and
	// outcome ("consumed", "invalid").
	VerificationsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_consumed_total",
		Help:      "Verification code submissions by method and outcome",
	}, []string{"method", "outcome"})

	HousekeepingPurgedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "housekeeping_purged_total",
		Help:      "Records removed by housekeeping",
	}, []string{"kind"})

	// RateLimitedTotal counts 429s by rate limit policy.
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter by policy",
	}, []string{"policy"})
)
