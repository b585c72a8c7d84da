package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/store"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/stretchr/testify/mock"
)

type mockMembers struct{ mock.Mock }

func (m *mockMembers) MemberByID(ctx context.Context, id string) (*domain.Member, error) {
	args := m.Called(ctx, id)
	member, _ := args.Get(0).(*domain.Member)
	return member, args.Error(1)
}

func (m *mockMembers) MemberByUsernameOrEmail(ctx context.Context, s string) (*domain.Member, error) {
	args := m.Called(ctx, s)
	member, _ := args.Get(0).(*domain.Member)
	return member, args.Error(1)
}

// verifyingMembers also records verifications.
type verifyingMembers struct {
	mockMembers
}

func (m *verifyingMembers) MarkVerified(ctx context.Context, memberID string, method domain.VerificationMethod) error {
	return m.Called(ctx, memberID, method).Error(0)
}

// plainHasher treats "hash:<password>" as the hash of <password>.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hash:" + p, nil }

func (plainHasher) Verify(p, hash string) error {
	if hash != "hash:"+p {
		return cryptox.ErrPasswordMismatch
	}
	return nil
}

type mockRefreshTokens struct{ mock.Mock }

func (m *mockRefreshTokens) ExpireTime() time.Duration {
	return m.Called().Get(0).(time.Duration)
}

func (m *mockRefreshTokens) FetchRefreshTokensByID(ctx context.Context, id string, includeExpired bool) ([]domain.RefreshToken, error) {
	args := m.Called(ctx, id, includeExpired)
	out, _ := args.Get(0).([]domain.RefreshToken)
	return out, args.Error(1)
}

func (m *mockRefreshTokens) FetchRefreshTokensByToken(ctx context.Context, token string, includeExpired bool) ([]domain.RefreshToken, error) {
	args := m.Called(ctx, token, includeExpired)
	out, _ := args.Get(0).([]domain.RefreshToken)
	return out, args.Error(1)
}

func (m *mockRefreshTokens) CreateRefreshToken(ctx context.Context, id, token, role string) error {
	return m.Called(ctx, id, token, role).Error(0)
}

func (m *mockRefreshTokens) DeleteExpiredRefreshTokens(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRefreshTokens) InvalidateActiveRefreshTokens(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRefreshTokens) UpdateRefreshTokenRole(ctx context.Context, id, role string) error {
	return m.Called(ctx, id, role).Error(0)
}

type mockBlacklist struct{ mock.Mock }

func (m *mockBlacklist) BlacklistToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return m.Called(ctx, tokenID, expiresAt).Error(0)
}

func (m *mockBlacklist) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBlacklist) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockVerificationTokens struct{ mock.Mock }

func (m *mockVerificationTokens) StoreVerificationToken(ctx context.Context, v domain.VerificationToken) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockVerificationTokens) FetchVerificationToken(
	ctx context.Context,
	id string,
	method domain.VerificationMethod,
	token string,
	status *domain.VerificationStatus,
) (domain.VerificationToken, error) {
	args := m.Called(ctx, id, method, token, status)
	return args.Get(0).(domain.VerificationToken), args.Error(1)
}

func (m *mockVerificationTokens) ConsumeVerificationToken(ctx context.Context, id string, method domain.VerificationMethod, token string) error {
	return m.Called(ctx, id, method, token).Error(0)
}

func (m *mockVerificationTokens) DeleteExpiredVerificationTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// mockStore hands out the mocked sub-repositories. Anything not set up
// with On fails the test when called.
type mockStore struct {
	rt *mockRefreshTokens
	bl *mockBlacklist
	vt *mockVerificationTokens
}

func newMockStore() *mockStore {
	return &mockStore{
		rt: &mockRefreshTokens{},
		bl: &mockBlacklist{},
		vt: &mockVerificationTokens{},
	}
}

func (s *mockStore) RefreshTokens() store.RefreshTokens           { return s.rt }
func (s *mockStore) Blacklist() store.Blacklist                   { return s.bl }
func (s *mockStore) VerificationTokens() store.VerificationTokens { return s.vt }
func (s *mockStore) ApplyMigrations(context.Context) error        { return nil }
func (s *mockStore) Close() error                                 { return nil }
func (s *mockStore) Ping(context.Context) error                   { return nil }

type mockEmailSender struct{ mock.Mock }

func (m *mockEmailSender) SendVerificationEmail(ctx context.Context, address, name, token string) error {
	return m.Called(ctx, address, name, token).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendVerificationSMS(ctx context.Context, number, name, token string) error {
	return m.Called(ctx, number, name, token).Error(0)
}
