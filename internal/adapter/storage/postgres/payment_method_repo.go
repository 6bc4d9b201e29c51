package postgres

import (
	"context"
	"errors"
	"fmt"

	"collection-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const paymentMethodColumns = `id, name, fee_type, fee_rate::text, fee_amount::text,
		minimum_amount::text, maximum_amount::text, allowed_currencies, available`

// PaymentMethodRepo implements ports.PaymentMethodRepository. Payment
// methods are seeded by the schema and never written at runtime.
type PaymentMethodRepo struct {
	pool Pool
}

// NewPaymentMethodRepo creates a new PaymentMethodRepo.
func NewPaymentMethodRepo(pool Pool) *PaymentMethodRepo {
	return &PaymentMethodRepo{pool: pool}
}

// GetByID fetches a payment method by its UUID.
func (r *PaymentMethodRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id = $1`

	m, err := scanPaymentMethod(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	return m, nil
}

// ListAvailableByCurrency returns the available methods that accept currency.
func (r *PaymentMethodRepo) ListAvailableByCurrency(ctx context.Context, currency domain.Currency) ([]domain.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods
		WHERE available AND $1 = ANY(allowed_currencies) ORDER BY name`

	rows, err := r.pool.Query(ctx, query, string(currency))
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		m, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment method row: %w", err)
		}
		methods = append(methods, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment method rows: %w", err)
	}
	return methods, nil
}

func scanPaymentMethod(row pgx.Row) (*domain.PaymentMethod, error) {
	var (
		m                                   domain.PaymentMethod
		name, feeType                       string
		feeRate, feeAmount, minimum, maximum string
		currencies                          []string
	)
	err := row.Scan(&m.ID, &name, &feeType, &feeRate, &feeAmount, &minimum, &maximum, &currencies, &m.Available)
	if err != nil {
		return nil, err
	}
	m.Name = domain.TransactionType(name)
	m.FeeType = domain.FeeType(feeType)
	if m.FeeRate, err = decimal.NewFromString(feeRate); err != nil {
		return nil, fmt.Errorf("parsing fee rate %q: %w", feeRate, err)
	}
	if m.FeeAmount, err = domain.ParseMoney(feeAmount); err != nil {
		return nil, err
	}
	if m.MinimumAmount, err = domain.ParseMoney(minimum); err != nil {
		return nil, err
	}
	if m.MaximumAmount, err = domain.ParseMoney(maximum); err != nil {
		return nil, err
	}
	for _, c := range currencies {
		m.AllowedCurrencies = append(m.AllowedCurrencies, domain.Currency(c))
	}
	return &m, nil
}
