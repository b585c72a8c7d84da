package domain

// MemberStatusWaitingVerification marks a member that signed up but has not
// yet completed verification. Login failures for these members carry the
// member so the caller can steer them back into the verification flow.
const MemberStatusWaitingVerification = "WAITING_VERIFICATION"

// Member is the view of an end user that the member directory hands us.
// We never write members; the directory owns them.
type Member struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	PhoneNumber   string  `json:"phone_number,omitempty"`
	PasswordHash  string  `json:"password_hash"`
	Active        bool    `json:"active"`
	Status        string  `json:"status,omitempty"`
	EmailVerified bool    `json:"email_verified"`
	PhoneVerified bool    `json:"phone_verified"`
	TwoFactorSeed *string `json:"two_factor_seed,omitempty"` // base32 TOTP secret
	Role          string  `json:"role"`                      // base role once every challenge is passed
}

// DisplayName is what we greet the member with in verification messages.
func (m Member) DisplayName() string {
	if m.Username != "" {
		return m.Username
	}
	return m.Email
}

// AwaitingVerification reports whether the member is parked in the
// WAITING_VERIFICATION status.
func (m Member) AwaitingVerification() bool {
	return m.Status == MemberStatusWaitingVerification
}
