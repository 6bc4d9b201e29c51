package domain

import (
	"time"

	"github.com/google/uuid"
)

// PayoutStatus represents the state of a payout.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusSuccess PayoutStatus = "success"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// PayoutDestination is the bank account receiving the payout.
type PayoutDestination struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
}

// Payout moves available balance out to a merchant's bank account.
type Payout struct {
	ID          uuid.UUID         `json:"id"`
	MerchantID  uuid.UUID         `json:"merchant_id"`
	Reference   string            `json:"reference"`
	Amount      Money             `json:"amount"`
	Currency    Currency          `json:"currency"`
	Status      PayoutStatus      `json:"status"`
	Destination PayoutDestination `json:"destination"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
