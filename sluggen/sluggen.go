// Package sluggen produces the random slugs short links are addressed by.
// Generators should be safe for concurrent use.
package sluggen

import (
	"crypto/rand"
	"errors"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// rejectAbove is the largest multiple of len(alphabet) that fits in a byte.
// Bytes at or above it are discarded to keep the character distribution
// uniform.
const rejectAbove = 248

// Generator produces URL slugs.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator implements Generator over the base62 alphabet.
type base62Generator struct{}

// NewBase62 returns a new base62 slug generator.
func NewBase62() Generator {
	return &base62Generator{}
}

// Generate returns a uniformly random base62 string of the given length.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if c >= rejectAbove {
				continue
			}
			out = append(out, alphabet[int(c)%len(alphabet)])
			if len(out) == length {
				return string(out), nil
			}
		}
	}
}
