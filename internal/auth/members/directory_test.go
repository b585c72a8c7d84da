package members_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/members"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
	"github.com/aussiebroadwan/turnstile/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const membersJSON = `[
  {"id": "m1", "username": "alice", "email": "Alice@Example.com", "password_hash": "x", "active": true, "role": "member"},
  {"id": "m2", "username": "bob", "email": "bob@example.com", "password_hash": "y", "active": false, "status": "WAITING_VERIFICATION"}
]`

func writeMembers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "members.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	d, err := members.LoadFile(writeMembers(t, membersJSON))
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())

	m, err := d.MemberByUsernameOrEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "m1", m.ID)

	m, err = d.MemberByUsernameOrEmail(ctx, "bob")
	require.NoError(t, err)
	require.True(t, m.AwaitingVerification())

	_, err = d.MemberByUsernameOrEmail(ctx, "Bob")
	require.ErrorIs(t, err, service.ErrMemberNotFound, "usernames are exact")

	_, err = d.MemberByUsernameOrEmail(ctx, "")
	require.ErrorIs(t, err, service.ErrMemberNotFound)

	_, err = d.MemberByID(ctx, "m3")
	require.ErrorIs(t, err, service.ErrMemberNotFound)
}

func TestLookupsReturnCopies(t *testing.T) {
	ctx := context.Background()
	d, err := members.NewDirectory(domain.Member{ID: "m1", Role: "member"})
	require.NoError(t, err)

	m, err := d.MemberByID(ctx, "m1")
	require.NoError(t, err)
	m.Role = "admin"

	again, err := d.MemberByID(ctx, "m1")
	require.NoError(t, err)
	require.Equal(t, "member", again.Role)
}

func TestMarkVerifiedPersists(t *testing.T) {
	ctx := context.Background()
	path := writeMembers(t, membersJSON)

	d, err := members.LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, d.MarkVerified(ctx, "m1", domain.VerificationEmail))
	require.NoError(t, d.MarkVerified(ctx, "m1", domain.VerificationSMS))
	require.ErrorIs(t, d.MarkVerified(ctx, "nobody", domain.VerificationEmail), service.ErrMemberNotFound)

	reloaded, err := members.LoadFile(path)
	require.NoError(t, err)
	m, err := reloaded.MemberByID(ctx, "m1")
	require.NoError(t, err)
	require.True(t, m.EmailVerified)
	require.True(t, m.PhoneVerified)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	_, err := members.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = members.LoadFile(writeMembers(t, "{"))
	require.Error(t, err)

	_, err = members.LoadFile(writeMembers(t, `[{"id": "m1"}, {"id": "m1"}]`))
	require.ErrorContains(t, err, "duplicate")

	_, err = members.LoadFile(writeMembers(t, `[{"username": "ghost"}]`))
	require.Error(t, err)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := members.LogSender{Logger: slogx.New(slogx.Config{Output: &buf, Format: "json"})}

	require.NoError(t, s.SendVerificationEmail(context.Background(), "alice@example.com", "alice", "tok-1"))
	require.NoError(t, s.SendVerificationSMS(context.Background(), "+61412345678", "alice", "123456"))

	require.Contains(t, buf.String(), "tok-1")
	require.Contains(t, buf.String(), "+61412345678")
}
