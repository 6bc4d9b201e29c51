package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const cardDataKeyLen = 32

var errCiphertextTooShort = errors.New("sealed card field shorter than its nonce")

// AESEncryptionService seals the card fields a transaction keeps at rest
// (masked PAN, holder name, expiry). Sealed values are hex(nonce || ciphertext)
// so they fit in the TEXT columns of the transactions table.
type AESEncryptionService struct {
	aead cipher.AEAD
}

// NewAESEncryptionService builds the card field sealer from the card data key,
// given as 64 hex characters.
func NewAESEncryptionService(hexKey string) (*AESEncryptionService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("card data key is not hex: %w", err)
	}
	if len(key) != cardDataKeyLen {
		return nil, fmt.Errorf("card data key must decode to %d bytes, got %d", cardDataKeyLen, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("card data cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("card data cipher: %w", err)
	}
	return &AESEncryptionService{aead: aead}, nil
}

// Encrypt seals one card field. A field that was never supplied stays empty,
// so virtual account rows carry no sealed card data.
func (s *AESEncryptionService) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("card field nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt opens a card field sealed by Encrypt.
func (s *AESEncryptionService) Decrypt(ciphertextHex string) (string, error) {
	if ciphertextHex == "" {
		return "", nil
	}

	sealed, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", fmt.Errorf("sealed card field is not hex: %w", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", errCiphertextTooShort
	}

	plaintext, err := s.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("opening sealed card field: %w", err)
	}
	return string(plaintext), nil
}
