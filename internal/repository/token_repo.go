package repository

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// TokenLength is the number of characters of every generated token.
	TokenLength   = 20
	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// TokenRepository owns the outstanding single-use tokens and their issuance time.
// Implementations must make each operation on a token atomic with respect to the others.
type TokenRepository interface {
	// Generate returns a fresh random token. When expire is true the token is recorded
	// with the current time; otherwise it is returned untracked (e.g. the random half of an API key).
	// An error is only returned when the token could not be produced or recorded.
	Generate(ctx context.Context, expire bool) (string, error)
	// Check reports whether the token is recorded and still inside the validity window.
	// A recorded but expired token is evicted and reported as false.
	Check(ctx context.Context, token string) bool
	// Delete removes the token and reports whether it was recorded.
	Delete(ctx context.Context, token string) bool
	// Consume checks and deletes the token in one step. It returns true for exactly
	// one caller per valid token.
	Consume(ctx context.Context, token string) bool
}

// GenerateTokenValue draws TokenLength characters from letters and digits using crypto/rand.
func GenerateTokenValue() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	token := make([]byte, TokenLength)
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}
		token[i] = tokenAlphabet[n.Int64()]
	}
	return string(token), nil
}
