package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/turnstile/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit is a named token bucket policy: Requests per Window, with up to
// Burst requests allowed back to back.
type RateLimit struct {
	Name     string
	Requests int
	Window   time.Duration
	Burst    int
}

// Every is the refill rate of the bucket.
func (l RateLimit) Every() rate.Limit {
	if l.Requests <= 0 || l.Window <= 0 {
		return 0
	}
	return rate.Limit(float64(l.Requests) / l.Window.Seconds())
}

// Policies the router picks from. Each can be overridden through
// RATELIMIT_{NAME}_REQUESTS, RATELIMIT_{NAME}_WINDOW_SEC and
// RATELIMIT_{NAME}_BURST.
var (
	// StrictLimit guards login, refresh and code submission.
	StrictLimit = RateLimitFromEnv(RateLimit{Name: "strict", Requests: 5, Window: time.Minute, Burst: 5})

	// ModerateLimit is for authenticated reads and sending codes.
	ModerateLimit = RateLimitFromEnv(RateLimit{Name: "moderate", Requests: 20, Window: time.Minute, Burst: 20})

	// PublicLimit is for probes.
	PublicLimit = RateLimitFromEnv(RateLimit{Name: "public", Requests: 1000, Window: time.Minute, Burst: 1000})
)

// RateLimitFromEnv applies the RATELIMIT_{NAME}_* overrides to def.
// Missing, unparseable and non-positive values keep the default.
func RateLimitFromEnv(def RateLimit) RateLimit {
	prefix := "RATELIMIT_" + strings.ToUpper(def.Name) + "_"
	positive := func(suffix string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv(prefix + suffix))
		return n, err == nil && n > 0
	}

	out := def
	if n, ok := positive("REQUESTS"); ok {
		out.Requests = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		out.Window = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		out.Burst = n
	}
	return out
}

// Limiter holds one bucket per key. Buckets nobody has touched for two
// windows are dropped on the next sweep.
type Limiter struct {
	limit RateLimit
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLimiter builds a limiter for limit. now defaults to time.Now.
func NewLimiter(limit RateLimit, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		limit:     limit,
		now:       now,
		buckets:   make(map[string]*bucket),
		lastSweep: now(),
	}
}

// Allow takes a token from key's bucket. When the bucket is empty it
// reports how long until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit.Every(), l.limit.Burst)}
		l.buckets[key] = b
	}
	b.seen = now

	if b.lim.AllowN(now, 1) {
		return true, 0
	}

	r := b.lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// Len is the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) idle() time.Duration {
	return 2 * l.limit.Window
}

// sweep runs at most once a window. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.limit.Window {
		return
	}
	l.lastSweep = now

	for key, b := range l.buckets {
		if now.Sub(b.seen) > l.idle() {
			delete(l.buckets, key)
		}
	}
}

// KeyFunc picks the bucket a request counts against. An empty key lets the
// request through unlimited.
type KeyFunc func(*http.Request) string

// ClientIP keys on the caller's address, trusting X-Forwarded-For and
// X-Real-IP from the proxy in front of us.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MemberKey keys on the member set by BearerAuth.
func MemberKey(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p.MemberID
	}
	return ""
}

// JoinKeys concatenates the non-empty keys of fns with ":".
func JoinKeys(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

const maxPeekBody = 64 << 10

// JSONFieldKey keys on a top-level string field of a JSON body, lowercased.
// The body is put back for the handler.
func JSONFieldKey(field string) KeyFunc {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return ""
		}

		var fields map[string]any
		if json.Unmarshal(body, &fields) != nil {
			return ""
		}
		v, _ := fields[field].(string)
		return strings.ToLower(strings.TrimSpace(v))
	}
}

type rateLimitOptions struct {
	now        func() time.Time
	onRejected func(policy string)
}

type RateLimitOption func(*rateLimitOptions)

// WithRateLimitClock swaps the clock, for tests.
func WithRateLimitClock(now func() time.Time) RateLimitOption {
	return func(o *rateLimitOptions) { o.now = now }
}

// OnRateLimited is called with the policy name for every rejected request.
func OnRateLimited(fn func(policy string)) RateLimitOption {
	return func(o *rateLimitOptions) { o.onRejected = fn }
}

// RateLimitMiddleware answers 429 once key's bucket under limit is empty.
// Each call gets its own buckets, so two routes sharing a policy are
// limited separately.
func RateLimitMiddleware(limit RateLimit, key KeyFunc, opts ...RateLimitOption) Middleware {
	var o rateLimitOptions
	for _, opt := range opts {
		opt(&o)
	}
	lim := NewLimiter(limit, o.now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request, letting it through",
					"policy", limit.Name,
				)
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := lim.Allow(k)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			if wait <= 0 || wait > limit.Window {
				wait = limit.Window
			}
			retryAfter := max(int(math.Ceil(wait.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			w.Header().Set("X-RateLimit-Window", limit.Window.String())
			w.Header().Set("X-RateLimit-Policy", limit.Name)

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"policy", limit.Name,
				"key", k,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)
			if o.onRejected != nil {
				o.onRejected(limit.Name)
			}

			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(limit RateLimit, opts ...RateLimitOption) Middleware {
	return RateLimitMiddleware(limit, ClientIP, opts...)
}

// RateLimitByMember limits per authenticated member and address. Must run
// after BearerAuth.
func RateLimitByMember(limit RateLimit, opts ...RateLimitOption) Middleware {
	return RateLimitMiddleware(limit, JoinKeys(MemberKey, ClientIP), opts...)
}

// RateLimitByIPAndJSONField limits per address and body field, so guessing
// at one login doesn't lock out everyone behind the same NAT.
func RateLimitByIPAndJSONField(limit RateLimit, field string, opts ...RateLimitOption) Middleware {
	return RateLimitMiddleware(limit, JoinKeys(ClientIP, JSONFieldKey(field)), opts...)
}
