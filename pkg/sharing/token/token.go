// Package token mints and shape-checks share link tokens.
//
// Tokens are 32 random bytes encoded as unpadded base64url: 43 URL-safe,
// case-sensitive characters carrying no metadata. Everything a token grants
// lives server-side on the link record.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

const (
	entropyBytes = 32
	Length       = 43
)

type Codec struct {
	// Source of randomness; crypto/rand when nil.
	Rand io.Reader
}

func New() *Codec {
	return &Codec{}
}

func (c *Codec) Generate() (string, error) {
	r := c.Rand
	if r == nil {
		r = rand.Reader
	}

	b := make([]byte, entropyBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// IsWellFormed reports whether s could have been produced by Generate.
func (c *Codec) IsWellFormed(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_':
		default:
			return false
		}
	}
	// 32 bytes leave 2 unused bits in the final character; they must be zero.
	_, err := base64.RawURLEncoding.Strict().DecodeString(s)
	return err == nil
}
