// Package codes generates the short secrets used for access codes, letters
// of intent, brokerage contracts and agent declarations.
package codes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/types"
)

const (
	// Length of every issued code
	Length = 6
	// MaxAttempts bounds the generate-and-insert loop
	MaxAttempts = 5

	charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator produces candidate code values
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws uppercase alphanumeric codes from crypto/rand
type RandomGenerator struct{}

// Generate returns a random code of Length characters
func (RandomGenerator) Generate() (string, error) {
	result := make([]byte, Length)
	for i := range result {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// Normalize trims, removes separators and uppercases user input
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, " ", "")
	code = strings.ReplaceAll(code, "-", "")
	return strings.ToUpper(code)
}

// Valid reports whether code has the issued shape
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(charset, c) {
			return false
		}
	}
	return true
}

// Issue draws a code and hands it to store, retrying while store reports a
// unique constraint violation. The unique index is the only arbiter; no
// lookup happens before the write.
func Issue(gen Generator, store func(code string) error) (string, error) {
	if gen == nil {
		gen = RandomGenerator{}
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		code, err := gen.Generate()
		if err != nil {
			return "", err
		}

		err = store(code)
		if err == nil {
			return code, nil
		}
		if !repository.IsDuplicateKey(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no unique code after %d attempts: %w", types.ErrServiceUnavailable, MaxAttempts, types.ErrDuplicateCode)
}
