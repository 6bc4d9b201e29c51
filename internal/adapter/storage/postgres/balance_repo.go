package postgres

import (
	"context"
	"errors"
	"fmt"

	"collection-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Numerics are read as text so no precision is lost on the way to decimal.
const balanceColumns = `id, merchant_id, currency, available_balance::text, pending_settlement_balance::text, updated_at`

// BalanceRepo implements ports.BalanceLedger. Each mutation is a single
// conditional UPDATE ... RETURNING, so the non-negative invariant holds
// without a read-modify-write in Go.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Create inserts a balance row within a database transaction.
func (r *BalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.MerchantBalance) error {
	query := `INSERT INTO merchant_balances (id, merchant_id, currency, available_balance, pending_settlement_balance, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		b.ID, b.MerchantID, string(b.Currency),
		b.AvailableBalance.String(), b.PendingSettlementBalance.String(), b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert merchant balance: %w", err)
	}
	return nil
}

// ListByMerchant returns every balance of a merchant, ordered by currency.
func (r *BalanceRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]domain.MerchantBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM merchant_balances WHERE merchant_id = $1 ORDER BY currency`

	rows, err := r.pool.Query(ctx, query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list merchant balances: %w", err)
	}
	defer rows.Close()

	var balances []domain.MerchantBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan merchant balance: %w", err)
		}
		balances = append(balances, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merchant balances: %w", err)
	}
	return balances, nil
}

// GetForUpdate fetches a balance with pessimistic locking.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency) (*domain.MerchantBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM merchant_balances
		WHERE merchant_id = $1 AND currency = $2 FOR UPDATE`

	b, err := scanBalance(tx.QueryRow(ctx, query, merchantID, string(currency)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant balance for update: %w", err)
	}
	return b, nil
}

// CreditAvailable adds amount to the available balance.
func (r *BalanceRepo) CreditAvailable(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	query := `UPDATE merchant_balances
		SET available_balance = available_balance + $3::numeric, updated_at = NOW()
		WHERE merchant_id = $1 AND currency = $2
		RETURNING ` + balanceColumns

	b, err := r.mutate(ctx, tx, query, merchantID, currency, amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBalanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credit available balance: %w", err)
	}
	return b, nil
}

// CreditPending adds amount to the pending settlement balance.
func (r *BalanceRepo) CreditPending(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	query := `UPDATE merchant_balances
		SET pending_settlement_balance = pending_settlement_balance + $3::numeric, updated_at = NOW()
		WHERE merchant_id = $1 AND currency = $2
		RETURNING ` + balanceColumns

	b, err := r.mutate(ctx, tx, query, merchantID, currency, amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBalanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credit pending balance: %w", err)
	}
	return b, nil
}

// Debit subtracts amount from the available balance when it covers amount.
func (r *BalanceRepo) Debit(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	query := `UPDATE merchant_balances
		SET available_balance = available_balance - $3::numeric, updated_at = NOW()
		WHERE merchant_id = $1 AND currency = $2 AND available_balance >= $3::numeric
		RETURNING ` + balanceColumns

	b, err := r.mutate(ctx, tx, query, merchantID, currency, amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOr(ctx, tx, merchantID, currency, domain.ErrInsufficientFunds)
	}
	if err != nil {
		return nil, fmt.Errorf("debit available balance: %w", err)
	}
	return b, nil
}

// Settle moves amount from the pending settlement balance to the available balance.
func (r *BalanceRepo) Settle(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	query := `UPDATE merchant_balances
		SET pending_settlement_balance = pending_settlement_balance - $3::numeric,
			available_balance = available_balance + $3::numeric,
			updated_at = NOW()
		WHERE merchant_id = $1 AND currency = $2 AND pending_settlement_balance >= $3::numeric
		RETURNING ` + balanceColumns

	b, err := r.mutate(ctx, tx, query, merchantID, currency, amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missingOr(ctx, tx, merchantID, currency, domain.ErrInsufficientPending)
	}
	if err != nil {
		return nil, fmt.Errorf("settle pending balance: %w", err)
	}
	return b, nil
}

func (r *BalanceRepo) mutate(ctx context.Context, tx pgx.Tx, query string, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	return scanBalance(tx.QueryRow(ctx, query, merchantID, string(currency), amount.String()))
}

// missingOr tells a missing balance row apart from a failed guard.
func (r *BalanceRepo) missingOr(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, guardErr error) error {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM merchant_balances WHERE merchant_id = $1 AND currency = $2)`,
		merchantID, string(currency),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check merchant balance: %w", err)
	}
	if !exists {
		return domain.ErrBalanceNotFound
	}
	return guardErr
}

func scanBalance(row pgx.Row) (*domain.MerchantBalance, error) {
	var (
		b                  domain.MerchantBalance
		currency           string
		available, pending string
	)
	if err := row.Scan(&b.ID, &b.MerchantID, &currency, &available, &pending, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Currency = domain.Currency(currency)

	var err error
	if b.AvailableBalance, err = domain.ParseMoney(available); err != nil {
		return nil, err
	}
	if b.PendingSettlementBalance, err = domain.ParseMoney(pending); err != nil {
		return nil, err
	}
	return &b, nil
}
