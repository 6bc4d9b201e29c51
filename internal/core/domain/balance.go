package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientFunds is returned by a ledger debit that would make the
	// available balance negative.
	ErrInsufficientFunds = errors.New("insufficient available balance")
	// ErrInsufficientPending is returned when settling more than is pending.
	ErrInsufficientPending = errors.New("insufficient pending settlement balance")
	// ErrBalanceNotFound is returned when no balance row exists for the
	// merchant and currency.
	ErrBalanceNotFound = errors.New("balance not found")
)

// MerchantBalance holds a merchant's funds in one currency.
// AvailableBalance is never negative.
type MerchantBalance struct {
	ID                       uuid.UUID `json:"id"`
	MerchantID               uuid.UUID `json:"merchant_id"`
	Currency                 Currency  `json:"currency"`
	AvailableBalance         Money     `json:"available_balance"`
	PendingSettlementBalance Money     `json:"pending_settlement_balance"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// CanDebit reports whether amount can leave the available balance.
func (b *MerchantBalance) CanDebit(amount Money) bool {
	return b.AvailableBalance.GreaterThanOrEqual(amount.Decimal)
}
