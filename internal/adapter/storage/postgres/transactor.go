package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// lifecycleTxOptions applies to every lifecycle unit of work. Rows that are
// mutated are locked with FOR UPDATE first.
var lifecycleTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.ReadCommitted,
	AccessMode: pgx.ReadWrite,
}

// Transactor implements ports.DBTransactor on top of the pool.
type Transactor struct {
	pool Pool
	opts pgx.TxOptions
}

// NewTransactor creates a Transactor for the capture, settlement, payout and
// registration units of work.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool, opts: lifecycleTxOptions}
}

// Begin opens a database transaction. The caller owns Commit/Rollback.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, t.opts)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}
