// Package idx mints ULID request identifiers.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in its canonical 26 character form.
type ID string

var ErrInvalid = errors.New("idx: invalid ulid")

// One monotonic source for the process, so ids minted in the same
// millisecond still sort in the order they were handed out.
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New mints an ID for the current time.
func New() ID {
	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Now(), entropy).String())
}

// Parse accepts only strictly valid ULIDs.
func Parse(s string) (ID, error) {
	u, err := ulid.ParseStrict(strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalid
	}
	return ID(u.String()), nil
}

// FromHeader keeps an inbound request id when it is a well formed ULID and
// mints a fresh one otherwise. Callers control that header, so anything
// else is dropped rather than written into our logs.
func FromHeader(v string) ID {
	if id, err := Parse(v); err == nil {
		return id
	}
	return New()
}

func (id ID) String() string { return string(id) }
