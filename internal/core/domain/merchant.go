package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MerchantStatus gates all collection activity of a merchant.
type MerchantStatus string

const (
	MerchantStatusActive    MerchantStatus = "active"
	MerchantStatusInactive  MerchantStatus = "inactive"
	MerchantStatusSuspended MerchantStatus = "suspended"
)

// ErrEmailTaken is returned when a merchant with the same email exists.
var ErrEmailTaken = errors.New("merchant email already registered")

// Merchant represents a registered merchant in the system.
type Merchant struct {
	ID                uuid.UUID      `json:"id"`
	FirstName         string         `json:"first_name"`
	MiddleName        *string        `json:"middle_name,omitempty"`
	LastName          string         `json:"last_name"`
	Email             string         `json:"email"`
	PhoneNumber       string         `json:"phone_number"`
	Address           *string        `json:"address,omitempty"`
	PreferredCurrency Currency       `json:"preferred_currency"`
	Status            MerchantStatus `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsActive returns true if the merchant may collect payments.
func (m *Merchant) IsActive() bool {
	return m.Status == MerchantStatusActive
}

// FullName joins first, middle and last name.
func (m *Merchant) FullName() string {
	parts := []string{m.FirstName}
	if m.MiddleName != nil && strings.TrimSpace(*m.MiddleName) != "" {
		parts = append(parts, strings.TrimSpace(*m.MiddleName))
	}
	parts = append(parts, m.LastName)
	return strings.Join(parts, " ")
}

// Key prefixes.
const (
	PublicKeyPrefix   = "sqpk"
	SecretKeyPrefix   = "sqsk"
	TransactionPrefix = "tx"
	PayoutPrefix      = "px"
)

// MerchantKey is an API credential pair. Only the secret's hash is stored.
type MerchantKey struct {
	ID            uuid.UUID `json:"id"`
	MerchantID    uuid.UUID `json:"merchant_id"`
	PublicKey     string    `json:"public_key"`
	SecretKeyHash string    `json:"-"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// VirtualAccount is the bank account customers pay into for a merchant.
type VirtualAccount struct {
	ID            uuid.UUID `json:"id"`
	MerchantID    uuid.UUID `json:"merchant_id"`
	AccountNumber string    `json:"account_number"`
	AccountName   string    `json:"account_name"`
	BankCode      string    `json:"bank_code"`
	BankName      string    `json:"bank_name"`
	CreatedAt     time.Time `json:"created_at"`
}
