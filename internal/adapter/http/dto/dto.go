package dto

import (
	"collection-gateway/internal/core/domain"
)

// RegisterMerchantRequest is the request body for merchant registration.
type RegisterMerchantRequest struct {
	FirstName   string  `json:"first_name" binding:"required,max=100"`
	MiddleName  *string `json:"middle_name,omitempty" binding:"omitempty,max=100"`
	LastName    string  `json:"last_name" binding:"required,max=100"`
	Email       string  `json:"email" binding:"required,email,max=254"`
	PhoneNumber string  `json:"phone_number" binding:"required,ng_phone"`
	Address     *string `json:"address,omitempty" binding:"omitempty,max=255" sanitize:"html"`
}

// RegisterMerchantResponse returns the key pair once. The secret is never shown again.
type RegisterMerchantResponse struct {
	Merchant       *domain.Merchant         `json:"merchant"`
	VirtualAccount *domain.VirtualAccount   `json:"virtual_account"`
	Balances       []domain.MerchantBalance `json:"balances"`
	PublicKey      string                   `json:"public_key"`
	SecretKey      string                   `json:"secret_key"`
}

// StaffLoginRequest is the request body for back-office login.
type StaffLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StaffLoginResponse is the response body for a successful staff login.
type StaffLoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// InitializePaymentRequest opens a transaction for a merchant.
type InitializePaymentRequest struct {
	Amount              domain.Money `json:"amount"`
	Currency            string       `json:"currency" binding:"required,currency"`
	Description         *string      `json:"tx_desc,omitempty" binding:"omitempty,max=255" sanitize:"html"`
	CustomerName        *string      `json:"customer_name,omitempty" binding:"omitempty,max=100"`
	CustomerEmail       *string      `json:"customer_email,omitempty" binding:"omitempty,email"`
	CustomerPhoneNumber *string      `json:"customer_phone_number,omitempty" binding:"omitempty,max=20"`
}

// InitializePaymentResponse carries what a checkout page needs.
type InitializePaymentResponse struct {
	Transaction    *domain.Transaction    `json:"transaction"`
	PaymentMethods []domain.PaymentMethod `json:"payment_methods"`
	VirtualAccount *domain.VirtualAccount `json:"virtual_account"`
}

// CapturePaymentRequest is submitted by the customer's checkout for a reference.
type CapturePaymentRequest struct {
	Amount          domain.Money `json:"amount"`
	Currency        string       `json:"currency" binding:"required,currency"`
	TxType          string       `json:"tx_type" binding:"required,oneof=card virtual_account"`
	PaymentMethodID string       `json:"payment_method_id" binding:"required,uuid"`

	CardNumber     string `json:"card_number" binding:"required_if=TxType card,omitempty,card_number"`
	CardHolderName string `json:"card_holder_name" binding:"required_if=TxType card,omitempty,max=100"`
	CardExpiry     string `json:"card_expiration_date" binding:"required_if=TxType card,omitempty,card_expiry"`
	CVV            string `json:"card_verification_code" binding:"required_if=TxType card,omitempty,len=3,numeric"`

	CustomerAccountName   string `json:"customer_account_name" binding:"required_if=TxType virtual_account,omitempty,max=100"`
	CustomerAccountNumber string `json:"customer_account_number" binding:"required_if=TxType virtual_account,omitempty,account_number"`
	CustomerBankCode      string `json:"customer_bank_code" binding:"required_if=TxType virtual_account,omitempty,len=3,numeric"`
}

// CardSettlementRequest is the processor's notice that a card payment cleared.
type CardSettlementRequest struct {
	Reference  string       `json:"id" binding:"required"`
	Amount     domain.Money `json:"amount"`
	Currency   string       `json:"currency" binding:"required,currency"`
	CardNumber string       `json:"card_number" binding:"required,card_number"`
}

// PayoutRequest moves available balance to a bank account.
type PayoutRequest struct {
	Amount        domain.Money `json:"amount"`
	Currency      string       `json:"currency" binding:"required,currency"`
	AccountName   string       `json:"account_name" binding:"required,max=100"`
	AccountNumber string       `json:"account_number" binding:"required,account_number"`
	BankCode      string       `json:"bank_code" binding:"required,max=10"`
	BankName      string       `json:"bank_name" binding:"required,max=100"`
}

// PageQuery is the pagination accepted by every listing.
type PageQuery struct {
	Limit  int `form:"pageLimit,default=20"`
	Offset int `form:"offset,default=0"`
}

// MerchantListQuery filters the staff merchant listing.
type MerchantListQuery struct {
	PageQuery
	FirstName string `form:"first_name"`
}

// TransactionListQuery filters transaction listings.
type TransactionListQuery struct {
	PageQuery
	MerchantID string `form:"merchant_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=pending success failed"`
	Currency   string `form:"currency" binding:"omitempty,currency"`
}

// PayoutListQuery filters payout listings.
type PayoutListQuery struct {
	PageQuery
	MerchantID string `form:"merchant_id" binding:"omitempty,uuid"`
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"page_limit"`
	Offset int   `json:"offset"`
}
