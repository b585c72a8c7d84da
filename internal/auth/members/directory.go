// Package members provides the member directory and message senders the
// service runs with out of the box: a JSON file of members, and senders that
// only log. Real deployments plug their own in behind the service ports.
package members

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aussiebroadwan/turnstile/internal/auth/domain"
	"github.com/aussiebroadwan/turnstile/internal/auth/service"
)

// FileDirectory keeps members in memory, loaded from a JSON array. When
// backed by a file, verifications are written back to it.
type FileDirectory struct {
	path string

	mu   sync.RWMutex
	byID map[string]*domain.Member
}

// NewDirectory builds an in-memory directory, mostly for tests.
func NewDirectory(members ...domain.Member) (*FileDirectory, error) {
	d := &FileDirectory{byID: make(map[string]*domain.Member, len(members))}
	for _, m := range members {
		if err := d.add(m); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// LoadFile reads a JSON array of members from path.
func LoadFile(path string) (*FileDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read members file: %w", err)
	}

	var list []domain.Member
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode members file %s: %w", path, err)
	}

	d, err := NewDirectory(list...)
	if err != nil {
		return nil, fmt.Errorf("members file %s: %w", path, err)
	}
	d.path = path
	return d, nil
}

func (d *FileDirectory) add(m domain.Member) error {
	if m.ID == "" {
		return errors.New("member without id")
	}
	if _, dup := d.byID[m.ID]; dup {
		return fmt.Errorf("duplicate member id %q", m.ID)
	}
	d.byID[m.ID] = &m
	return nil
}

// Len is the number of members loaded.
func (d *FileDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func (d *FileDirectory) MemberByID(_ context.Context, id string) (*domain.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.byID[id]
	if !ok {
		return nil, service.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

// MemberByUsernameOrEmail matches emails case-insensitively and usernames
// exactly.
func (d *FileDirectory) MemberByUsernameOrEmail(_ context.Context, s string) (*domain.Member, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, service.ErrMemberNotFound
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, m := range d.byID {
		if m.Username == s || (m.Email != "" && strings.EqualFold(m.Email, s)) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, service.ErrMemberNotFound
}

// MarkVerified flags the member's email or phone as verified.
func (d *FileDirectory) MarkVerified(_ context.Context, memberID string, method domain.VerificationMethod) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.byID[memberID]
	if !ok {
		return service.ErrMemberNotFound
	}

	switch method {
	case domain.VerificationEmail:
		m.EmailVerified = true
	case domain.VerificationSMS:
		m.PhoneVerified = true
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownVerificationMethod, method)
	}

	if d.path == "" {
		return nil
	}
	return d.saveLocked()
}

// saveLocked rewrites the backing file through a temp file and rename.
func (d *FileDirectory) saveLocked() error {
	list := make([]domain.Member, 0, len(d.byID))
	for _, m := range d.byID {
		list = append(list, *m)
	}

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".members-*.json")
	if err != nil {
		return fmt.Errorf("write members file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write members file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write members file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("write members file: %w", err)
	}
	return os.Rename(tmp.Name(), d.path)
}
