/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package seed turns a short game code into a reproducible stream of
// pseudo-random draws.
//
// Every client that knows a game code can derive the same layout without
// talking to anyone else. None of this is suitable for keeping secrets from a
// determined player; it only has to agree across clients.
package seed

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
)

const (
	// Alphabet is the set of symbols a game code is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// CodeLength is the number of symbols in a game code.
	CodeLength = 6
)

var (
	ErrInvalidCode      = errors.New("invalid game code")
	ErrInsufficientPool = errors.New("content pool too small")

	codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)
)

// InsufficientPoolError is returned when a selection asks for more items
// than the pool holds.
type InsufficientPoolError struct {
	Have int
	Need int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("content pool has %d items, need at least %d", e.Have, e.Need)
}

func (e *InsufficientPoolError) Is(target error) bool {
	return target == ErrInsufficientPool
}

// Next returns the fractional part of sin(seed+index)*10000.
//
// The result is always in [0,1). index acts as a position in the stream, so
// unrelated draws from the same seed must use distinct indices.
func Next(seed, index int64) float64 {
	x := math.Sin(float64(seed+index)) * 10000
	f := x - math.Floor(x)

	// x slightly below zero can round up to exactly 1.
	if f >= 1 {
		return 0
	}

	return f
}

// Intn maps Next(seed, index) onto [0,n).
func Intn(seed, index int64, n int) int {
	return int(math.Floor(Next(seed, index) * float64(n)))
}

// FromCode reads code as a base-36 number, most significant digit first.
// Digits are 0-9 then A-Z, case-insensitive. Distinct codes may share a seed
// once the value wraps; that only means they share a layout.
func FromCode(code string) (int64, error) {
	if code == "" {
		return 0, ErrInvalidCode
	}

	var s int64
	for _, r := range code {
		d, ok := digit(r)
		if !ok {
			return 0, fmt.Errorf("%w: %q contains %q", ErrInvalidCode, code, r)
		}

		s = s*36 + int64(d)
	}

	return s, nil
}

func digit(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0'), true
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10, true
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 10, true
	}

	return 0, false
}

// ValidCode reports whether code is exactly six uppercase letters or digits.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// NewCode samples Alphabet uniformly CodeLength times using crypto/rand.
func NewCode() (string, error) {
	size := big.NewInt(int64(len(Alphabet)))

	out := make([]byte, CodeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}

		out[i] = Alphabet[n.Int64()]
	}

	return string(out), nil
}

// Shuffle returns a permutation of items driven by seed. items is left
// untouched.
//
// The walk from the last index down to 1, drawing Next(seed, i) for position
// i, is what keeps layouts from earlier releases reproducible. Do not change
// the index mapping.
func Shuffle[T any](items []T, seed int64) []T {
	out := make([]T, len(items))
	copy(out, items)

	for i := len(out) - 1; i > 0; i-- {
		j := Intn(seed, int64(i), i+1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}

// Select shuffles pool with seed and keeps the first k items.
func Select[T any](pool []T, seed int64, k int) ([]T, error) {
	if len(pool) < k {
		return nil, &InsufficientPoolError{Have: len(pool), Need: k}
	}

	return Shuffle(pool, seed)[:k:k], nil
}
