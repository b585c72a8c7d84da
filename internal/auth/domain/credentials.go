package domain

// Well known roles handed out before a member has passed every challenge.
const (
	RoleAnonymous                  = "anonymous"
	RoleAuth0                      = "auth_0"
	RoleEmailVerificationChallenge = "email_verification_challenge"
	RoleLoginChallenge             = "login_challenge"
)

// Credentials is the authenticated identity carried through a request.
// It is a value type; WithRole returns a copy.
type Credentials struct {
	MemberID     string `json:"member_id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	RefreshToken string `json:"-"`
}

// WithRole returns a copy of the credentials with the role replaced.
func (c Credentials) WithRole(role string) Credentials {
	c.Role = role
	return c
}
