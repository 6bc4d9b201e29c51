package service

import (
	"context"
	"errors"
	"testing"

	"collection-gateway/config"
	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type payoutTestDeps struct {
	svc        *PayoutServiceImpl
	payoutRepo *mocks.MockPayoutRepository
	ledger     *mocks.MockBalanceLedger
	audit      *mocks.MockAuditService
	keys       *mocks.MockKeyGenerator
	transactor *mocks.MockDBTransactor
	entries    []domain.AuditLog
	ctrl       *gomock.Controller
}

func testPayoutLimits() config.PayoutConfig {
	return config.PayoutConfig{Limits: map[string]config.PayoutLimit{
		"ngn": {Min: "1000", Max: "1000000"},
		"usd": {Min: "100", Max: "10000"},
	}}
}

func setupPayoutService(t *testing.T) *payoutTestDeps {
	ctrl := gomock.NewController(t)
	d := &payoutTestDeps{
		payoutRepo: mocks.NewMockPayoutRepository(ctrl),
		ledger:     mocks.NewMockBalanceLedger(ctrl),
		audit:      mocks.NewMockAuditService(ctrl),
		keys:       mocks.NewMockKeyGenerator(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.audit.EXPECT().Record(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e domain.AuditLog) {
		d.entries = append(d.entries, e)
	}).AnyTimes()
	d.svc = NewPayoutService(
		d.payoutRepo, d.ledger, d.audit, d.keys, d.transactor,
		testPayoutLimits(), 0, newTestLogger(),
	)
	return d
}

func payoutRequest(t *testing.T, merchantID uuid.UUID, amount string, currency domain.Currency) ports.PayoutRequest {
	return ports.PayoutRequest{
		MerchantID: merchantID,
		Amount:     money(t, amount),
		Currency:   currency,
		Destination: domain.PayoutDestination{
			AccountName:   "Ada Obi",
			AccountNumber: "0123456789",
			BankCode:      "058",
			BankName:      "GTBank",
		},
	}
}

func ngnBalance(t *testing.T, merchantID uuid.UUID, available string) *domain.MerchantBalance {
	return &domain.MerchantBalance{
		ID:                       uuid.New(),
		MerchantID:               merchantID,
		Currency:                 domain.CurrencyNGN,
		AvailableBalance:         money(t, available),
		PendingSettlementBalance: domain.Zero,
	}
}

func TestPayoutService_RequestPayout_Success(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().GetForUpdate(gomock.Any(), tx, merchantID, domain.CurrencyNGN).
		Return(ngnBalance(t, merchantID, "10000"), nil)
	d.keys.EXPECT().Key(domain.PayoutPrefix).Return("px_0001", nil)
	d.payoutRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, p *domain.Payout) error {
			assert.Equal(t, domain.PayoutStatusSuccess, p.Status)
			assert.Equal(t, "5000.00", p.Amount.String())
			return nil
		},
	)
	d.ledger.EXPECT().Debit(gomock.Any(), tx, merchantID, domain.CurrencyNGN, moneyEq(t, "5000")).
		Return(ngnBalance(t, merchantID, "5000"), nil)

	p, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, merchantID, "5000", domain.CurrencyNGN))
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, "px_0001", p.Reference)
	assert.Equal(t, domain.PayoutStatusSuccess, p.Status)
	assert.Empty(t, d.entries)
}

func TestPayoutService_RequestPayout_BoundsCheckedBeforeStore(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency domain.Currency
		wantCode string
	}{
		{"zero amount", "0", domain.CurrencyNGN, "VAL_002"},
		{"negative amount", "-5", domain.CurrencyNGN, "VAL_002"},
		{"below NGN minimum", "999.99", domain.CurrencyNGN, "VAL_004"},
		{"above NGN maximum", "1000000.01", domain.CurrencyNGN, "VAL_005"},
		{"below USD minimum", "99", domain.CurrencyUSD, "VAL_004"},
		{"above USD maximum", "10001", domain.CurrencyUSD, "VAL_005"},
		{"unsupported currency", "5000", "GHS", "VAL_003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupPayoutService(t)
			defer d.ctrl.Finish()

			_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, uuid.New(), tt.amount, tt.currency))
			assertAppError(t, err, tt.wantCode)
		})
	}
}

func TestPayoutService_RequestPayout_BoundsAreInclusive(t *testing.T) {
	for _, amount := range []string{"1000", "1000000"} {
		d := setupPayoutService(t)
		merchantID := uuid.New()
		tx := &mockTx{}

		d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		d.ledger.EXPECT().GetForUpdate(gomock.Any(), tx, merchantID, domain.CurrencyNGN).
			Return(ngnBalance(t, merchantID, "2000000"), nil)
		d.keys.EXPECT().Key(domain.PayoutPrefix).Return("px_"+amount, nil)
		d.payoutRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
		d.ledger.EXPECT().Debit(gomock.Any(), tx, merchantID, domain.CurrencyNGN, moneyEq(t, amount)).
			Return(&domain.MerchantBalance{}, nil)

		_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, merchantID, amount, domain.CurrencyNGN))
		require.NoError(t, err, amount)
		d.ctrl.Finish()
	}
}

func TestPayoutService_RequestPayout_InsufficientFunds(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().GetForUpdate(gomock.Any(), tx, merchantID, domain.CurrencyNGN).
		Return(ngnBalance(t, merchantID, "4999.99"), nil)

	_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, merchantID, "5000", domain.CurrencyNGN))
	assertAppError(t, err, "PAY_001")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	require.Len(t, d.entries, 1)
	assert.Equal(t, domain.AuditEventRequestPayout, d.entries[0].EventType)
	assert.Equal(t, merchantID.String(), *d.entries[0].ActorID)
	assert.Nil(t, d.entries[0].TableID)
}

func TestPayoutService_RequestPayout_BalanceMissing(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().GetForUpdate(gomock.Any(), tx, gomock.Any(), domain.CurrencyUSD).Return(nil, nil)

	_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, uuid.New(), "500", domain.CurrencyUSD))
	assertAppError(t, err, "NF_001")
}

func TestPayoutService_RequestPayout_BeginFailure(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	d.transactor.EXPECT().Begin(gomock.Any()).Return(nil, context.DeadlineExceeded)

	_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, uuid.New(), "5000", domain.CurrencyNGN))
	assertAppError(t, err, "SYS_002")
}

func TestPayoutService_RequestPayout_DebitFailureRecordsFailedPayout(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	tx := &mockTx{}
	ftx := &mockTx{}

	gomock.InOrder(
		d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil),
		d.transactor.EXPECT().Begin(gomock.Any()).Return(ftx, nil),
	)
	d.ledger.EXPECT().GetForUpdate(gomock.Any(), tx, merchantID, domain.CurrencyNGN).
		Return(ngnBalance(t, merchantID, "10000"), nil)
	d.keys.EXPECT().Key(domain.PayoutPrefix).Return("px_0002", nil)
	d.payoutRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().Debit(gomock.Any(), tx, merchantID, domain.CurrencyNGN, gomock.Any()).
		Return(nil, domain.ErrInsufficientFunds)

	var recorded *domain.Payout
	d.payoutRepo.EXPECT().Create(gomock.Any(), ftx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, p *domain.Payout) error {
			recorded = p
			return nil
		},
	)

	_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, merchantID, "5000", domain.CurrencyNGN))
	assertAppError(t, err, "PAY_001")
	assert.True(t, tx.rolledBack)
	assert.True(t, ftx.committed)
	require.NotNil(t, recorded)
	assert.Equal(t, domain.PayoutStatusFailed, recorded.Status)
	assert.Equal(t, "px_0002", recorded.Reference)
	require.Len(t, d.entries, 1)
	assert.Equal(t, recorded.ID.String(), *d.entries[0].TableID)
}

func TestPayoutService_RequestPayout_CommitFailureRecordsFailedPayout(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	tx := &mockTx{commitErr: errors.New("connection lost")}
	ftx := &mockTx{}

	gomock.InOrder(
		d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil),
		d.transactor.EXPECT().Begin(gomock.Any()).Return(ftx, nil),
	)
	d.ledger.EXPECT().GetForUpdate(gomock.Any(), tx, merchantID, domain.CurrencyNGN).
		Return(ngnBalance(t, merchantID, "10000"), nil)
	d.keys.EXPECT().Key(domain.PayoutPrefix).Return("px_0003", nil)
	d.payoutRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().Debit(gomock.Any(), tx, merchantID, domain.CurrencyNGN, gomock.Any()).
		Return(&domain.MerchantBalance{}, nil)
	d.payoutRepo.EXPECT().Create(gomock.Any(), ftx, gomock.Any()).Return(nil)

	_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, merchantID, "5000", domain.CurrencyNGN))
	assertAppError(t, err, "SYS_001")
	assert.True(t, tx.rolledBack)
	assert.True(t, ftx.committed)
}

func TestPayoutService_RequestPayout_FailedRecordNotPersisted(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	tx := &mockTx{}
	ftx := &mockTx{}

	gomock.InOrder(
		d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil),
		d.transactor.EXPECT().Begin(gomock.Any()).Return(ftx, nil),
	)
	d.ledger.EXPECT().GetForUpdate(gomock.Any(), tx, merchantID, domain.CurrencyNGN).
		Return(ngnBalance(t, merchantID, "10000"), nil)
	d.keys.EXPECT().Key(domain.PayoutPrefix).Return("px_0004", nil)
	d.payoutRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(errors.New("insert failed"))
	d.payoutRepo.EXPECT().Create(gomock.Any(), ftx, gomock.Any()).Return(errors.New("insert failed again"))

	_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, merchantID, "5000", domain.CurrencyNGN))
	assertAppError(t, err, "SYS_009")
	assert.True(t, ftx.rolledBack)

	events := make([]domain.AuditEvent, 0, len(d.entries))
	for _, e := range d.entries {
		events = append(events, e.EventType)
	}
	assert.ElementsMatch(t, []domain.AuditEvent{
		domain.AuditEventPayoutCompensation,
		domain.AuditEventRequestPayout,
	}, events)
}

func TestPayoutService_RequestPayout_RollbackFailure(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	tx := &mockTx{rollbackErr: errors.New("conn closed")}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().GetForUpdate(gomock.Any(), tx, merchantID, domain.CurrencyNGN).
		Return(ngnBalance(t, merchantID, "10000"), nil)
	d.keys.EXPECT().Key(domain.PayoutPrefix).Return("px_0005", nil)
	d.payoutRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().Debit(gomock.Any(), tx, merchantID, domain.CurrencyNGN, gomock.Any()).
		Return(nil, errors.New("deadlock detected"))

	_, err := d.svc.RequestPayout(context.Background(), payoutRequest(t, merchantID, "5000", domain.CurrencyNGN))
	assertAppError(t, err, "SYS_009")
}
