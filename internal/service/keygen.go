package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	keyRandomBytes      = 24
	accountNumberDigits = 10
)

// RandomKeyGenerator implements ports.KeyGenerator with crypto/rand.
type RandomKeyGenerator struct{}

// NewRandomKeyGenerator creates a new key generator.
func NewRandomKeyGenerator() *RandomKeyGenerator {
	return &RandomKeyGenerator{}
}

// Key returns prefix + "_" + hex of 24 random bytes.
func (g *RandomKeyGenerator) Key(prefix string) (string, error) {
	b := make([]byte, keyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating %s key: %w", prefix, err)
	}
	return prefix + "_" + hex.EncodeToString(b), nil
}

// AccountNumber returns a random 10-digit account number.
func (g *RandomKeyGenerator) AccountNumber() (string, error) {
	digits := make([]byte, accountNumberDigits)
	ten := big.NewInt(10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generating account number: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
