package service

import (
	"context"
	"io"
	"testing"

	"collection-gateway/internal/core/domain"
	"collection-gateway/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

func money(t *testing.T, s string) domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(s)
	require.NoError(t, err)
	return m
}

// moneyEq matches a domain.Money by value regardless of its decimal scale.
func moneyEq(t *testing.T, s string) gomock.Matcher {
	return moneyMatcher{want: money(t, s)}
}

type moneyMatcher struct{ want domain.Money }

func (m moneyMatcher) Matches(x any) bool {
	got, ok := x.(domain.Money)
	return ok && got.Equal(m.want)
}

func (m moneyMatcher) String() string { return "is " + m.want.String() }

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	commitErr   error
	rollbackErr error
	committed   bool
	rolledBack  bool
}

func (m *mockTx) Rollback(_ context.Context) error {
	if m.committed {
		return pgx.ErrTxClosed
	}
	m.rolledBack = true
	return m.rollbackErr
}

func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
