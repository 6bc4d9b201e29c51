package postgres

import (
	"context"
	"errors"
	"fmt"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const payoutColumns = `id, merchant_id, reference, amount::text, currency, status,
		account_name, account_number, bank_code, bank_name, created_at, updated_at`

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

// Create inserts a payout record within a database transaction.
func (r *PayoutRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payout) error {
	query := `INSERT INTO payouts (id, merchant_id, reference, amount, currency, status,
		account_name, account_number, bank_code, bank_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.MerchantID, p.Reference, p.Amount.String(), string(p.Currency), string(p.Status),
		p.Destination.AccountName, p.Destination.AccountNumber, p.Destination.BankCode, p.Destination.BankName,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}
	return nil
}

// GetByID fetches a payout by its UUID.
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1`

	p, err := scanPayout(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout by id: %w", err)
	}
	return p, nil
}

// List fetches payouts, newest first, optionally for one merchant.
func (r *PayoutRepo) List(ctx context.Context, params ports.PayoutListParams) ([]domain.Payout, int64, error) {
	where := ""
	var args []any
	if params.MerchantID != nil {
		where = "WHERE merchant_id = $1"
		args = append(args, *params.MerchantID)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM payouts "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payouts: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM payouts %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		payoutColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payout row: %w", err)
		}
		payouts = append(payouts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payout rows: %w", err)
	}
	return payouts, total, nil
}

func scanPayout(row pgx.Row) (*domain.Payout, error) {
	var (
		p                        domain.Payout
		amount, currency, status string
	)
	err := row.Scan(
		&p.ID, &p.MerchantID, &p.Reference, &amount, &currency, &status,
		&p.Destination.AccountName, &p.Destination.AccountNumber, &p.Destination.BankCode, &p.Destination.BankName,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Currency = domain.Currency(currency)
	p.Status = domain.PayoutStatus(status)
	if p.Amount, err = domain.ParseMoney(amount); err != nil {
		return nil, err
	}
	return &p, nil
}
