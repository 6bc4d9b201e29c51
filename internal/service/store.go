package service

import (
	"context"
	"errors"
	"time"

	"collection-gateway/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// defaultCallTimeout applies when no store timeout is configured.
const defaultCallTimeout = 5 * time.Second

// withTimeout bounds a single store call, or a single database transaction.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultCallTimeout
	}
	return context.WithTimeout(ctx, d)
}

// dependencyError classifies a store failure. AppErrors pass through unchanged.
func dependencyError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.ErrStoreTimeout(err)
	}
	return apperror.ErrDatabaseError(err)
}

// rollback discards everything tx applied and returns cause. When the
// rollback itself fails, cause is reported as a compensation failure.
func rollback(tx pgx.Tx, cause error, timeout time.Duration) error {
	ctx, cancel := withTimeout(context.Background(), timeout)
	defer cancel()

	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperror.ErrCompensationFailed(cause, err)
	}
	return cause
}

// discard rolls back a transaction that has not mutated anything yet.
func discard(tx pgx.Tx, timeout time.Duration, log zerolog.Logger, cause error) error {
	ctx, cancel := withTimeout(context.Background(), timeout)
	defer cancel()
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		log.Warn().Err(err).Msg("rollback of unmodified transaction failed")
	}
	return cause
}

func strPtr(s string) *string {
	return &s
}

// call runs a single store call under its own timeout.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	return fn(cctx)
}

// exec is call for store operations that only return an error.
func exec(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	cctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	return fn(cctx)
}
