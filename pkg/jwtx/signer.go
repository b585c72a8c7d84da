package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the shortest HMAC secret we accept, 256 bits to match the
// hash size.
const MinKeyLength = 32

// ErrWeakKey is returned when the signing secret is missing or too short.
var ErrWeakKey = fmt.Errorf("jwtx: signing key must be at least %d bytes", MinKeyLength)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256Codec signs and decodes tokens with a single shared secret. It is
// safe for concurrent use.
type HS256Codec struct {
	key []byte
}

var (
	_ Signer  = (*HS256Codec)(nil)
	_ Decoder = (*HS256Codec)(nil)
)

// NewHS256Codec copies key so later changes to the caller's slice don't
// leak in.
func NewHS256Codec(key []byte) (*HS256Codec, error) {
	if len(key) < MinKeyLength {
		return nil, ErrWeakKey
	}
	return &HS256Codec{key: append([]byte(nil), key...)}, nil
}

func (c *HS256Codec) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (c *HS256Codec) Sign(claims Claims) (string, error) {
	if len(c.key) == 0 {
		return "", errors.New("jwtx: nil HMAC key")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}
