// Package keygen generates short alphanumeric keys that are unique within
// a caller-supplied collision domain.
package keygen

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const symbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Defaults used by New when the caller passes non-positive values.
const (
	DefaultLength     = 6
	DefaultMaxRetries = 10
)

// ErrExhausted is returned when no collision-free key was found within the
// configured number of attempts. It signals that the key space is close to
// saturated; callers must treat it as a server-side condition and never
// fall back to a colliding key.
var ErrExhausted = errors.New("unable to generate a unique key after maximum retries")

var alphabetSize = big.NewInt(int64(len(symbols)))

// Generator draws fixed-length random keys from the 62-symbol alphanumeric
// alphabet using crypto/rand.
type Generator struct {
	length     int
	maxRetries int
}

func New(length, maxRetries int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Generator{
		length:     length,
		maxRetries: maxRetries,
	}
}

// Generate returns a key for which isTaken reports false. It makes at most
// maxRetries draws and returns ErrExhausted if all of them collide.
func (g *Generator) Generate(isTaken func(key string) bool) (string, error) {
	for i := 0; i < g.maxRetries; i++ {
		key, err := g.randomKey()
		if err != nil {
			return "", err
		}
		if !isTaken(key) {
			return key, nil
		}
	}
	return "", ErrExhausted
}

func (g *Generator) randomKey() (string, error) {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b.WriteByte(symbols[idx.Int64()])
	}
	return b.String(), nil
}
