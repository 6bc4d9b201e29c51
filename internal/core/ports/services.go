package ports

import (
	"context"
	"time"

	"collection-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// CredentialHasher digests merchant secret keys for storage and lookup.
type CredentialHasher interface {
	Digest(secret string) string
	Matches(secret string, digest string) bool
}

// KeyGenerator produces prefixed random identifiers and account numbers.
type KeyGenerator interface {
	Key(prefix string) (string, error)
	AccountNumber() (string, error)
}

// TokenService handles staff JWT token operations.
type TokenService interface {
	Generate(username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Username string
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// PaymentMethodCache is the Redis read-through layer in front of payment methods.
// A miss returns nil, nil.
type PaymentMethodCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error)
	Set(ctx context.Context, method *domain.PaymentMethod, ttl time.Duration) error
	GetByCurrency(ctx context.Context, currency domain.Currency) ([]domain.PaymentMethod, error)
	SetByCurrency(ctx context.Context, currency domain.Currency, methods []domain.PaymentMethod, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// AuditService is a best-effort, append-only sink. Record never blocks or fails the caller.
type AuditService interface {
	Record(ctx context.Context, entry domain.AuditLog)
}

// PaymentMethodService resolves the payment method a capture may use.
type PaymentMethodService interface {
	// Resolve checks, in order: exists with matching type, currency allowed,
	// available, amount >= minimum, amount <= maximum.
	Resolve(ctx context.Context, methodID uuid.UUID, txType domain.TransactionType, currency domain.Currency, amount domain.Money) (*domain.PaymentMethod, error)
	ListForCurrency(ctx context.Context, currency domain.Currency) ([]domain.PaymentMethod, error)
}

// TransactionService drives the payment lifecycle.
type TransactionService interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Capture(ctx context.Context, req CaptureRequest) (*domain.Transaction, error)
	Settle(ctx context.Context, req SettleRequest) (*domain.Transaction, error)
}

// InitializeRequest holds validated input for creating a pending transaction.
type InitializeRequest struct {
	MerchantID  uuid.UUID
	Amount      domain.Money
	Currency    domain.Currency
	Description *string
	Customer    domain.Customer
}

// InitializeResult is what the checkout needs to collect the payment.
type InitializeResult struct {
	Transaction    *domain.Transaction
	PaymentMethods []domain.PaymentMethod
	VirtualAccount *domain.VirtualAccount
}

// CardInput is the card as presented by the customer.
type CardInput struct {
	Number     string
	HolderName string
	Expiry     string
	CVV        string
}

// VirtualAccountInput is the customer account that made the transfer.
type VirtualAccountInput struct {
	AccountName   string
	AccountNumber string
	BankCode      string
}

// CaptureRequest holds validated input for paying a pending transaction.
// Exactly one of Card and VirtualAccount is set, matching Type.
type CaptureRequest struct {
	Reference       string
	Amount          domain.Money
	Currency        domain.Currency
	Type            domain.TransactionType
	PaymentMethodID uuid.UUID
	Card            *CardInput
	VirtualAccount  *VirtualAccountInput
}

// SettleRequest is the card processor's settlement notice.
type SettleRequest struct {
	Reference  string
	Amount     domain.Money
	Currency   domain.Currency
	CardNumber string
}

// PayoutService drives the payout lifecycle.
type PayoutService interface {
	RequestPayout(ctx context.Context, req PayoutRequest) (*domain.Payout, error)
}

// PayoutRequest holds validated input for a payout.
type PayoutRequest struct {
	MerchantID  uuid.UUID
	Amount      domain.Money
	Currency    domain.Currency
	Destination domain.PayoutDestination
}

// MerchantService handles registration and API key authentication.
type MerchantService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Authenticate(ctx context.Context, publicKey, secretKey string) (*domain.Merchant, error)
}

// RegisterRequest holds input for merchant registration.
type RegisterRequest struct {
	FirstName   string
	MiddleName  *string
	LastName    string
	Email       string
	PhoneNumber string
	Address     *string
}

// RegisterResponse holds the registration result shown once.
type RegisterResponse struct {
	Merchant       *domain.Merchant
	VirtualAccount *domain.VirtualAccount
	Balances       []domain.MerchantBalance
	PublicKey      string
	SecretKey      string // Plaintext, shown only at registration
}

// StaffAuthService authenticates back-office operators.
type StaffAuthService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// QueryService serves the read-only listings.
type QueryService interface {
	ListMerchants(ctx context.Context, params MerchantListParams) ([]domain.Merchant, int64, error)
	GetMerchant(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	GetBalances(ctx context.Context, merchantID uuid.UUID) ([]domain.MerchantBalance, error)
	ListPayouts(ctx context.Context, params PayoutListParams) ([]domain.Payout, int64, error)
	GetPayout(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}
