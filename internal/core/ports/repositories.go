package ports

import (
	"context"

	"collection-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, tx pgx.Tx, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, params MerchantListParams) ([]domain.Merchant, int64, error)
}

// MerchantKeyRepository stores merchant API credentials.
type MerchantKeyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, key *domain.MerchantKey) error
	GetByPublicKey(ctx context.Context, publicKey string) (*domain.MerchantKey, error)
}

// VirtualAccountRepository stores the virtual account issued to each merchant.
type VirtualAccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.VirtualAccount) error
	GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.VirtualAccount, error)
}

// BalanceLedger is the only writer of merchant balances. Every mutation is a
// single conditional UPDATE ... RETURNING executed inside the caller's tx.
type BalanceLedger interface {
	Create(ctx context.Context, tx pgx.Tx, balance *domain.MerchantBalance) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.MerchantBalance, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency) (*domain.MerchantBalance, error)
	CreditAvailable(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error)
	CreditPending(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error)
	// Debit fails with domain.ErrInsufficientFunds when available < amount.
	Debit(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error)
	// Settle moves amount from pending to available.
	Settle(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error)
}

// PaymentMethodRepository reads payment method configuration.
type PaymentMethodRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error)
	ListAvailableByCurrency(ctx context.Context, currency domain.Currency) ([]domain.PaymentMethod, error)
}

// TransactionRepository defines persistence operations for transactions.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error)
	// UpdateCapture persists status, payment method, fee fields and details.
	UpdateCapture(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	MarkSettled(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// PayoutRepository defines persistence operations for payouts.
type PayoutRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payout *domain.Payout) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
	List(ctx context.Context, params PayoutListParams) ([]domain.Payout, int64, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// Page is offset pagination shared by every listing.
type Page struct {
	Limit  int
	Offset int
}

// MerchantListParams holds filter + pagination for listing merchants.
type MerchantListParams struct {
	FirstName *string // case-insensitive substring
	Page
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	MerchantID *uuid.UUID
	Status     *domain.TransactionStatus
	Currency   *domain.Currency
	Page
}

// PayoutListParams holds filter + pagination for listing payouts.
type PayoutListParams struct {
	MerchantID *uuid.UUID
	Page
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
