package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the way a customer paid, and the tag of PaymentDetails.
type TransactionType string

const (
	TransactionTypeCard           TransactionType = "card"
	TransactionTypeVirtualAccount TransactionType = "virtual_account"
)

// TransactionStatus is the persisted status of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// PaymentDetails is either CardDetails or VirtualAccountDetails.
type PaymentDetails interface {
	Type() TransactionType
}

// CardDetails keeps what may be stored about a card. The CVV never is.
type CardDetails struct {
	LastFour   string `json:"card_last_four"`
	HolderName string `json:"card_holder_name"`
	Expiry     string `json:"card_expiry"`
}

func (CardDetails) Type() TransactionType { return TransactionTypeCard }

// VirtualAccountDetails identifies the customer account that paid.
type VirtualAccountDetails struct {
	AccountName   string `json:"customer_account_name"`
	AccountNumber string `json:"customer_account_number"`
	BankCode      string `json:"customer_bank_code"`
}

func (VirtualAccountDetails) Type() TransactionType { return TransactionTypeVirtualAccount }

// Customer is optional payer information captured at initialization.
type Customer struct {
	Name        *string `json:"customer_name,omitempty"`
	Email       *string `json:"customer_email,omitempty"`
	PhoneNumber *string `json:"customer_phone_number,omitempty"`
}

// Transaction is a single collection from a customer to a merchant.
// Amount and Currency never change after creation.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	Reference       string            `json:"reference"`
	MerchantID      uuid.UUID         `json:"merchant_id"`
	Amount          Money             `json:"amount"`
	Currency        Currency          `json:"currency"`
	Description     *string           `json:"description,omitempty"`
	Customer        Customer          `json:"customer"`
	Status          TransactionStatus `json:"status"`
	PaymentMethodID *uuid.UUID        `json:"payment_method_id,omitempty"`
	FeeRate         decimal.Decimal   `json:"fee_rate"`
	FeeAmount       Money             `json:"fee_amount"`
	TotalAmount     Money             `json:"total_amount"` // net of fee
	Details         PaymentDetails    `json:"details,omitempty"`
	SettledAt       *time.Time        `json:"settled_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Type returns the tag of the captured details, or "" before capture.
func (t *Transaction) Type() TransactionType {
	if t.Details == nil {
		return ""
	}
	return t.Details.Type()
}

// Card returns the card details when the transaction was paid by card.
func (t *Transaction) Card() (CardDetails, bool) {
	c, ok := t.Details.(CardDetails)
	return c, ok
}

// State is the lifecycle position of a transaction, derived from status and details.
type State string

const (
	StateCreated  State = "created"
	StateCaptured State = "captured"
	StateSettled  State = "settled"
	StateFailed   State = "failed"
)

// Event drives a transition between states.
type Event string

const (
	EventCaptureCard           Event = "capture_card"
	EventCaptureVirtualAccount Event = "capture_virtual_account"
	EventSettle                Event = "settle"
	EventFail                  Event = "fail"
)

// transitions is the only place that decides which moves are legal.
var transitions = map[State]map[Event]State{
	StateCreated: {
		EventCaptureCard:           StateCaptured,
		EventCaptureVirtualAccount: StateSettled,
		EventFail:                  StateFailed,
	},
	StateCaptured: {
		EventSettle: StateSettled,
		EventFail:   StateFailed,
	},
}

// State derives the lifecycle state.
func (t *Transaction) State() State {
	switch t.Status {
	case TransactionStatusSuccess:
		return StateSettled
	case TransactionStatusFailed:
		return StateFailed
	}
	if t.Details == nil {
		return StateCreated
	}
	return StateCaptured
}

// Next returns the state reached from the current one by e. ok is false
// when the transition is not allowed.
func (t *Transaction) Next(e Event) (State, bool) {
	next, ok := transitions[t.State()][e]
	return next, ok
}

// CaptureEvent maps a payment type to its capture event.
func CaptureEvent(txType TransactionType) Event {
	if txType == TransactionTypeCard {
		return EventCaptureCard
	}
	return EventCaptureVirtualAccount
}

// StatusOf maps a state to the status persisted for it.
func StatusOf(s State) TransactionStatus {
	switch s {
	case StateSettled:
		return TransactionStatusSuccess
	case StateFailed:
		return TransactionStatusFailed
	default:
		return TransactionStatusPending
	}
}
