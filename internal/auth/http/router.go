package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/metrics"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/httpx"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"

	_ "github.com/aussiebroadwan/turnstile/api/auth" // Swagger docs
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        Pinger

	Auth       *service.Authenticator
	Validator  *service.TokenValidator
	Tokens     *service.TokenService
	Challenges *service.ChallengeService

	// InvalidateOnWrite blacklists the caller's access token after every
	// successful authenticated write.
	InvalidateOnWrite bool
}

func NewRouter(buildVersion string, st Pinger, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerVerification()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Turnstile Authentication Service API
//	@version		0.1.0
//	@description	Password login, refresh tokens and challenge roles for member sessions.
//	@description
//	@description				Access tokens are HS256 JWTs. Every token carries a jti that can be blacklisted
//	@description				before it expires, by logging out or by any write when invalidate-on-write is on.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/turnstile
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) bearer() httpx.Middleware {
	return httpx.BearerAuth(bearerValidator{v: r.Validator})
}

var countRejected = httpx.OnRateLimited(func(policy string) {
	metrics.RateLimitedTotal.WithLabelValues(policy).Inc()
})

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Auth:       r.Auth,
		Challenges: r.Challenges,
		Tokens:     r.Tokens,
	}

	// POST /login - strict rate limit by IP + email to slow password guessing
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email", countRejected),
		),
	)

	// POST /refresh - strict rate limit by IP, refresh tokens are bearer secrets
	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit, countRejected),
		),
	)

	// POST /logout - revokes its own token, so no BlacklistOnWrite here
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.bearer(),
			httpx.RateLimitByMember(httpx.ModerateLimit, countRejected),
		),
	)

	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(MeHandler),
			r.bearer(),
			httpx.RateLimitByMember(httpx.ModerateLimit, countRejected),
		),
	)
}

func (r *Router) registerVerification() {
	h := &ChallengeHandler{
		Challenges: r.Challenges,
		Tokens:     r.Tokens,
	}

	// POST /verify/{method} - sends mail or SMS; the token stays usable for
	// the confirm step, so it is not blacklisted on write
	r.Mux.Handle("POST /api/auth/verify/{method}",
		httpx.Chain(http.HandlerFunc(h.HandleInitiate),
			r.bearer(),
			httpx.RateLimitByMember(httpx.ModerateLimit, countRejected),
		),
	)

	// POST /verify/{method}/confirm - strict, codes are short
	r.Mux.Handle("POST /api/auth/verify/{method}/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			r.bearer(),
			httpx.BlacklistOnWrite(r.InvalidateOnWrite, r.Auth),
			httpx.RateLimitByMember(httpx.StrictLimit, countRejected),
		),
	)

	// POST /challenge/totp - strict rate limit by member (six digit codes)
	r.Mux.Handle("POST /api/auth/challenge/totp",
		httpx.Chain(http.HandlerFunc(h.HandleTOTP),
			r.bearer(),
			httpx.RequireRole(domain.RoleLoginChallenge),
			httpx.BlacklistOnWrite(r.InvalidateOnWrite, r.Auth),
			httpx.RateLimitByMember(httpx.StrictLimit, countRejected),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - public limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit, countRejected),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit, countRejected),
		),
	)

	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
