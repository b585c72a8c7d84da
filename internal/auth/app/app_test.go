package app

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/pkg/authsdk"
	"github.com/aussiebroadwan/turnstile/pkg/cryptox"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	dir := t.TempDir()

	pepperFile := filepath.Join(dir, "pepper")
	require.NoError(t, os.WriteFile(pepperFile, []byte("test-pepper\n"), 0o600))

	argon, err := cryptox.PasswordHasher{Pepper: "test-pepper"}.Hash("correct-horse")
	require.NoError(t, err)
	legacy, err := bcrypt.GenerateFromPassword([]byte("battery-staple"), bcrypt.MinCost)
	require.NoError(t, err)

	raw, err := json.Marshal([]domain.Member{
		{ID: "m1", Username: "alice", Email: "alice@example.com", PasswordHash: argon, Active: true, EmailVerified: true, Role: "member"},
		{ID: "m2", Username: "bob", Email: "bob@example.com", PasswordHash: string(legacy), Active: true, EmailVerified: true, Role: "member"},
	})
	require.NoError(t, err)
	membersFile := filepath.Join(dir, "members.json")
	require.NoError(t, os.WriteFile(membersFile, raw, 0o600))

	cfg := validConfig()
	cfg.StoreDriver = StoreDriverSQLite
	cfg.DatabaseFile = filepath.Join(dir, "auth.db")
	cfg.MembersFile = membersFile
	cfg.PepperFile = pepperFile
	cfg.RedisAddr = ""
	cfg.LogLevel = "error"

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })
	return app
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Issuer = ""

	_, err := New(cfg)
	require.ErrorContains(t, err, "invalid configuration")
}

func TestNewFailsWithoutMembersFile(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseFile = filepath.Join(t.TempDir(), "auth.db")
	cfg.PepperFile = filepath.Join(t.TempDir(), "pepper")
	cfg.MembersFile = filepath.Join(t.TempDir(), "missing.json")
	cfg.RedisAddr = ""

	_, err := New(cfg)
	require.ErrorContains(t, err, "failed to load members")
}

func TestApplicationServesLoginFlow(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	client := authsdk.NewClient(srv.URL)
	ctx := t.Context()

	tok, err := client.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	me, err := client.Me(ctx, tok.Token)
	require.NoError(t, err)
	require.Equal(t, "m1", me.MemberID)
	require.Equal(t, "member", me.Role)

	// bcrypt hashes from before the pepper still verify
	_, err = client.Login(ctx, "bob@example.com", "battery-staple")
	require.NoError(t, err)

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)

	require.NoError(t, client.Logout(ctx, tok.Token))
	_, err = client.Me(ctx, tok.Token)
	require.ErrorIs(t, err, authsdk.ErrInvalidToken)
}
