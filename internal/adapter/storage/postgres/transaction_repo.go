package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, reference, merchant_id, amount::text, currency, description,
		customer_name, customer_email, customer_phone_number, status, payment_method_id,
		fee_rate::text, fee_amount::text, total_amount::text, tx_type,
		card_last_four, card_holder_name, card_expiry,
		customer_account_name, customer_account_number, customer_bank_code,
		settled_at, created_at, updated_at`

// TransactionRepo implements ports.TransactionRepository.
// Card holder name and expiry are encrypted at rest.
type TransactionRepo struct {
	pool   Pool
	crypto ports.EncryptionService
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool, crypto ports.EncryptionService) *TransactionRepo {
	return &TransactionRepo{pool: pool, crypto: crypto}
}

// Create inserts a freshly initialized transaction.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, reference, merchant_id, amount, currency, description,
		customer_name, customer_email, customer_phone_number, status, fee_rate, fee_amount, total_amount,
		created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Reference, t.MerchantID, t.Amount.String(), string(t.Currency), t.Description,
		t.Customer.Name, t.Customer.Email, t.Customer.PhoneNumber, string(t.Status),
		t.FeeRate.String(), t.FeeAmount.String(), t.TotalAmount.String(),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByReference fetches a transaction by its public reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return r.getOne(r.pool.QueryRow(ctx, query, reference))
}

// GetByReferenceForUpdate fetches a transaction with pessimistic locking.
// This MUST be called within a transaction.
func (r *TransactionRepo) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 FOR UPDATE`
	return r.getOne(tx.QueryRow(ctx, query, reference))
}

// UpdateCapture persists the outcome of a capture: status, fee and payment details.
func (r *TransactionRepo) UpdateCapture(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	cols, err := r.detailColumns(t.Details)
	if err != nil {
		return err
	}

	query := `UPDATE transactions SET status = $2, payment_method_id = $3,
		fee_rate = $4, fee_amount = $5, total_amount = $6, tx_type = $7,
		card_last_four = $8, card_holder_name = $9, card_expiry = $10,
		customer_account_name = $11, customer_account_number = $12, customer_bank_code = $13,
		settled_at = $14, updated_at = $15
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query,
		t.ID, string(t.Status), t.PaymentMethodID,
		t.FeeRate.String(), t.FeeAmount.String(), t.TotalAmount.String(), cols.txType,
		cols.lastFour, cols.holderName, cols.expiry,
		cols.accountName, cols.accountNumber, cols.bankCode,
		t.SettledAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update transaction capture: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", t.Reference)
	}
	return nil
}

// MarkSettled records the settlement of a captured card transaction.
func (r *TransactionRepo) MarkSettled(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `UPDATE transactions SET status = $2, settled_at = $3, updated_at = $4 WHERE id = $1`

	tag, err := tx.Exec(ctx, query, t.ID, string(t.Status), t.SettledAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mark transaction settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", t.Reference)
	}
	return nil
}

// List fetches transactions with filtering and pagination.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.MerchantID != nil {
		conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
		args = append(args, *params.MerchantID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if params.Currency != nil {
		conditions = append(conditions, fmt.Sprintf("currency = $%d", argIdx))
		args = append(args, string(*params.Currency))
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

func (r *TransactionRepo) getOne(row pgx.Row) (*domain.Transaction, error) {
	t, err := r.scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

// detailRow is the flattened form of domain.PaymentDetails.
type detailRow struct {
	txType        *string
	lastFour      *string
	holderName    *string
	expiry        *string
	accountName   *string
	accountNumber *string
	bankCode      *string
}

func (r *TransactionRepo) detailColumns(details domain.PaymentDetails) (detailRow, error) {
	var row detailRow
	switch d := details.(type) {
	case domain.CardDetails:
		holder, err := r.crypto.Encrypt(d.HolderName)
		if err != nil {
			return row, fmt.Errorf("encrypt card holder name: %w", err)
		}
		expiry, err := r.crypto.Encrypt(d.Expiry)
		if err != nil {
			return row, fmt.Errorf("encrypt card expiry: %w", err)
		}
		row.txType = ptr(string(domain.TransactionTypeCard))
		row.lastFour = ptr(d.LastFour)
		row.holderName = &holder
		row.expiry = &expiry
	case domain.VirtualAccountDetails:
		row.txType = ptr(string(domain.TransactionTypeVirtualAccount))
		row.accountName = ptr(d.AccountName)
		row.accountNumber = ptr(d.AccountNumber)
		row.bankCode = ptr(d.BankCode)
	}
	return row, nil
}

func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                        domain.Transaction
		amount, currency, status string
		feeRate, fee, total      string
		d                        detailRow
	)
	err := row.Scan(
		&t.ID, &t.Reference, &t.MerchantID, &amount, &currency, &t.Description,
		&t.Customer.Name, &t.Customer.Email, &t.Customer.PhoneNumber, &status, &t.PaymentMethodID,
		&feeRate, &fee, &total, &d.txType,
		&d.lastFour, &d.holderName, &d.expiry,
		&d.accountName, &d.accountNumber, &d.bankCode,
		&t.SettledAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Currency = domain.Currency(currency)
	t.Status = domain.TransactionStatus(status)
	if t.Amount, err = domain.ParseMoney(amount); err != nil {
		return nil, err
	}
	if t.FeeRate, err = decimal.NewFromString(feeRate); err != nil {
		return nil, fmt.Errorf("parsing fee rate %q: %w", feeRate, err)
	}
	if t.FeeAmount, err = domain.ParseMoney(fee); err != nil {
		return nil, err
	}
	if t.TotalAmount, err = domain.ParseMoney(total); err != nil {
		return nil, err
	}
	if t.Details, err = r.details(d); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) details(d detailRow) (domain.PaymentDetails, error) {
	if d.txType == nil {
		return nil, nil
	}
	switch domain.TransactionType(*d.txType) {
	case domain.TransactionTypeCard:
		holder, err := r.crypto.Decrypt(deref(d.holderName))
		if err != nil {
			return nil, fmt.Errorf("decrypt card holder name: %w", err)
		}
		expiry, err := r.crypto.Decrypt(deref(d.expiry))
		if err != nil {
			return nil, fmt.Errorf("decrypt card expiry: %w", err)
		}
		return domain.CardDetails{LastFour: deref(d.lastFour), HolderName: holder, Expiry: expiry}, nil
	case domain.TransactionTypeVirtualAccount:
		return domain.VirtualAccountDetails{
			AccountName:   deref(d.accountName),
			AccountNumber: deref(d.accountNumber),
			BankCode:      deref(d.bankCode),
		}, nil
	}
	return nil, fmt.Errorf("unknown transaction type %q", *d.txType)
}

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
