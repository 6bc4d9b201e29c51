package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost for back-office operator passwords. Stored hashes record
// their own parameters, so raising these does not invalidate existing ones.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64MB
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Argon2HashService hashes and checks the passwords of the staff operators
// configured for the back-office API.
type Argon2HashService struct{}

func NewArgon2HashService() *Argon2HashService {
	return &Argon2HashService{}
}

// Hash produces the PHC-style string kept in the staff configuration:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (s *Argon2HashService) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("operator password salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify checks an operator's password against their stored hash. A malformed
// stored hash is a configuration error, not a failed login.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	p, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	otherHash := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.hash)))

	return subtle.ConstantTimeCompare(p.hash, otherHash) == 1, nil
}

type argon2Hash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	hash    []byte
}

func decodeArgon2Hash(encodedHash string) (*argon2Hash, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, fmt.Errorf("operator password hash has %d fields, want 6", len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("operator password hash uses %q, want argon2id", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("operator password hash version: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("operator password hash is argon2 version %d", version)
	}

	p := &argon2Hash{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, fmt.Errorf("operator password hash params: %w", err)
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("operator password hash salt: %w", err)
	}
	if p.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("operator password hash digest: %w", err)
	}
	return p, nil
}

// SHA256CredentialHasher implements ports.CredentialHasher. Merchant secret
// keys carry 192 bits of entropy, so an unsalted digest is enough to look
// them up and compare them.
type SHA256CredentialHasher struct{}

// NewSHA256CredentialHasher creates a new credential hasher.
func NewSHA256CredentialHasher() *SHA256CredentialHasher {
	return &SHA256CredentialHasher{}
}

// Digest returns the lowercase hex SHA-256 of secret.
func (h *SHA256CredentialHasher) Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Matches compares secret against a stored digest in constant time.
func (h *SHA256CredentialHasher) Matches(secret string, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Digest(secret)), []byte(digest)) == 1
}
