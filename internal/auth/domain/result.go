package domain

// FailReason is the closed set of reasons an authentication step can fail.
type FailReason int

const (
	FailNone FailReason = iota
	FailMemberNotFound
	FailMemberInactive
	FailMemberAwaitingVerification
	FailWrongPassword
	FailInvalidRefreshToken
	FailRefreshTokenExpired
	FailSignatureInvalid
	FailClaimsInvalid
	FailTokenExpired
	FailTokenRevoked
)

var failReasonTags = map[FailReason]string{
	FailNone:                       "",
	FailMemberNotFound:             "member_not_exists",
	FailMemberInactive:             "member_not_active",
	FailMemberAwaitingVerification: "member_waiting_verification",
	FailWrongPassword:              "wrong_password",
	FailInvalidRefreshToken:        "invalid_refresh_token",
	FailRefreshTokenExpired:        "refresh_token_expired",
	FailSignatureInvalid:           "verification_failed_signature",
	FailClaimsInvalid:              "verification_failed_data_error",
	FailTokenExpired:               "verification_failed_expired",
	FailTokenRevoked:               "verification_failed_jti",
}

// String returns the stable wire tag for the reason.
func (r FailReason) String() string {
	if tag, ok := failReasonTags[r]; ok {
		return tag
	}
	return "unknown"
}

// AuthResult is the outcome of login, logout and refresh. Domain failures are
// values here, never Go errors.
type AuthResult struct {
	Success      bool
	Member       *Member
	Role         string
	RefreshToken string
	Reason       FailReason
}

// Succeeded builds a successful result.
func Succeeded(m *Member, role, refreshToken string) AuthResult {
	return AuthResult{
		Success:      true,
		Member:       m,
		Role:         role,
		RefreshToken: refreshToken,
	}
}

// Failed builds a failed result. Member is optional and only set where the
// caller is allowed to learn who the failure concerned.
func Failed(reason FailReason, m *Member) AuthResult {
	return AuthResult{Reason: reason, Member: m}
}

// Credentials converts a successful result into request credentials.
func (r AuthResult) Credentials() Credentials {
	if !r.Success || r.Member == nil {
		return Credentials{}
	}
	return Credentials{
		MemberID:     r.Member.ID,
		Username:     r.Member.Username,
		Role:         r.Role,
		RefreshToken: r.RefreshToken,
	}
}
