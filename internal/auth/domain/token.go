package domain

import "time"

// RefreshTokenStatus is the lifecycle state of a stored refresh token.
type RefreshTokenStatus string

const (
	RefreshTokenActive         RefreshTokenStatus = "ACTIVE"
	RefreshTokenLoggedOut      RefreshTokenStatus = "LOGGED_OUT"
	RefreshTokenDeletedExpired RefreshTokenStatus = "DELETED_EXPIRED"
)

// RefreshToken models the stored refresh token record. A member has at most
// one ACTIVE record at a time, which is reused across logins until it expires.
type RefreshToken struct {
	ID       string // member id the token belongs to
	Token    string // opaque UUID v4
	Role     string // role at issuance, updated after role calculation
	Status   RefreshTokenStatus
	IssuedAt time.Time

	// IsExpired is derived by the store when the record is read:
	// IssuedAt + refresh lifetime < now.
	IsExpired bool
}

// BlacklistGrace is how long a blacklist entry outlives the token's own exp
// before it is considered dead and purged.
const BlacklistGrace = 10 * time.Second

// BlacklistEntry records a revoked access token by its jti.
type BlacklistEntry struct {
	TokenID   string
	ExpiresAt time.Time
}

// Dead reports whether the entry is past its grace window.
func (e BlacklistEntry) Dead(now time.Time) bool {
	return e.ExpiresAt.Add(BlacklistGrace).Before(now)
}

// IssuedToken is what the token emitter hands back to the client.
type IssuedToken struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	JTI          string    `json:"-"`
	ExpiresAt    time.Time `json:"-"`
}

// ValidatedToken is the result of running a bearer token through the
// validation pipeline.
type ValidatedToken struct {
	Credentials Credentials
	JTI         string
	ExpiresAt   time.Time
}
