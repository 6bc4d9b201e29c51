package postgres

import (
	"context"
	"errors"
	"fmt"

	"collection-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VirtualAccountRepo implements ports.VirtualAccountRepository.
type VirtualAccountRepo struct {
	pool Pool
}

// NewVirtualAccountRepo creates a new VirtualAccountRepo.
func NewVirtualAccountRepo(pool Pool) *VirtualAccountRepo {
	return &VirtualAccountRepo{pool: pool}
}

// Create inserts the merchant's virtual account within a database transaction.
func (r *VirtualAccountRepo) Create(ctx context.Context, tx pgx.Tx, va *domain.VirtualAccount) error {
	query := `INSERT INTO virtual_accounts (id, merchant_id, account_number, account_name, bank_code, bank_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		va.ID, va.MerchantID, va.AccountNumber, va.AccountName, va.BankCode, va.BankName, va.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert virtual account: %w", err)
	}
	return nil
}

// GetByMerchantID fetches the virtual account owned by a merchant.
func (r *VirtualAccountRepo) GetByMerchantID(ctx context.Context, merchantID uuid.UUID) (*domain.VirtualAccount, error) {
	query := `SELECT id, merchant_id, account_number, account_name, bank_code, bank_name, created_at
		FROM virtual_accounts WHERE merchant_id = $1`

	va := &domain.VirtualAccount{}
	err := r.pool.QueryRow(ctx, query, merchantID).Scan(
		&va.ID, &va.MerchantID, &va.AccountNumber, &va.AccountName, &va.BankCode, &va.BankName, &va.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get virtual account: %w", err)
	}
	return va, nil
}
