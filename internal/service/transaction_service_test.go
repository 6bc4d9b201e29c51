package service

import (
	"context"
	"errors"
	"testing"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/internal/core/ports/mocks"
	"collection-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type transactionTestDeps struct {
	svc        *TransactionServiceImpl
	txRepo     *mocks.MockTransactionRepository
	vaRepo     *mocks.MockVirtualAccountRepository
	ledger     *mocks.MockBalanceLedger
	methods    *mocks.MockPaymentMethodService
	audit      *mocks.MockAuditService
	keys       *mocks.MockKeyGenerator
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupTransactionService(t *testing.T) *transactionTestDeps {
	ctrl := gomock.NewController(t)
	d := &transactionTestDeps{
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		vaRepo:     mocks.NewMockVirtualAccountRepository(ctrl),
		ledger:     mocks.NewMockBalanceLedger(ctrl),
		methods:    mocks.NewMockPaymentMethodService(ctrl),
		audit:      mocks.NewMockAuditService(ctrl),
		keys:       mocks.NewMockKeyGenerator(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewTransactionService(
		d.txRepo, d.vaRepo, d.ledger, d.methods, d.audit,
		d.keys, d.transactor, 0, newTestLogger(),
	)
	return d
}

func pendingTransaction(t *testing.T, amount string) *domain.Transaction {
	return &domain.Transaction{
		ID:          uuid.New(),
		Reference:   "tx_abc123",
		MerchantID:  uuid.New(),
		Amount:      money(t, amount),
		Currency:    domain.CurrencyNGN,
		Status:      domain.TransactionStatusPending,
		FeeRate:     decimal.Zero,
		FeeAmount:   domain.Zero,
		TotalAmount: domain.Zero,
	}
}

func percentageMethod(t *testing.T, name domain.TransactionType, rate string) *domain.PaymentMethod {
	return &domain.PaymentMethod{
		ID:                uuid.New(),
		Name:              name,
		FeeType:           domain.FeeTypePercentage,
		FeeRate:           decimal.RequireFromString(rate),
		MinimumAmount:     money(t, "100"),
		MaximumAmount:     money(t, "5000000"),
		AllowedCurrencies: []domain.Currency{domain.CurrencyNGN, domain.CurrencyUSD},
		Available:         true,
	}
}

func cardCapture(t *testing.T, reference, amount string, methodID uuid.UUID) ports.CaptureRequest {
	return ports.CaptureRequest{
		Reference:       reference,
		Amount:          money(t, amount),
		Currency:        domain.CurrencyNGN,
		Type:            domain.TransactionTypeCard,
		PaymentMethodID: methodID,
		Card: &ports.CardInput{
			Number:     "4111 1111 1111 1111",
			HolderName: "Ada Obi",
			Expiry:     "12/30",
			CVV:        "123",
		},
	}
}

func vaCapture(t *testing.T, reference, amount string, methodID uuid.UUID) ports.CaptureRequest {
	return ports.CaptureRequest{
		Reference:       reference,
		Amount:          money(t, amount),
		Currency:        domain.CurrencyNGN,
		Type:            domain.TransactionTypeVirtualAccount,
		PaymentMethodID: methodID,
		VirtualAccount: &ports.VirtualAccountInput{
			AccountName:   "Ada Obi",
			AccountNumber: "0123456789",
			BankCode:      "058",
		},
	}
}

// expectAudit captures the entries passed to Record.
func expectAudit(d *transactionTestDeps) *[]domain.AuditLog {
	var entries []domain.AuditLog
	d.audit.EXPECT().Record(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e domain.AuditLog) {
		entries = append(entries, e)
	}).AnyTimes()
	return &entries
}

// ==================== Initialize Tests ====================

func TestTransactionService_Initialize_Success(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	merchantID := uuid.New()
	va := &domain.VirtualAccount{ID: uuid.New(), MerchantID: merchantID, AccountNumber: "0123456789"}
	methods := []domain.PaymentMethod{*percentageMethod(t, domain.TransactionTypeCard, "1.5")}

	d.vaRepo.EXPECT().GetByMerchantID(gomock.Any(), merchantID).Return(va, nil)
	d.methods.EXPECT().ListForCurrency(gomock.Any(), domain.CurrencyNGN).Return(methods, nil)
	d.keys.EXPECT().Key(domain.TransactionPrefix).Return("tx_0001", nil)
	d.txRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, tr *domain.Transaction) error {
			assert.Equal(t, domain.TransactionStatusPending, tr.Status)
			assert.Nil(t, tr.Details)
			assert.Equal(t, "2000.00", tr.Amount.String())
			return nil
		},
	)

	res, err := d.svc.Initialize(context.Background(), ports.InitializeRequest{
		MerchantID: merchantID,
		Amount:     money(t, "2000"),
		Currency:   domain.CurrencyNGN,
	})
	require.NoError(t, err)
	assert.Equal(t, "tx_0001", res.Transaction.Reference)
	assert.Equal(t, domain.StateCreated, res.Transaction.State())
	assert.Equal(t, va, res.VirtualAccount)
	assert.Len(t, res.PaymentMethods, 1)
}

func TestTransactionService_Initialize_Validation(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Initialize(context.Background(), ports.InitializeRequest{
		MerchantID: uuid.New(),
		Amount:     domain.Zero,
		Currency:   domain.CurrencyNGN,
	})
	assertAppError(t, err, "VAL_002")

	_, err = d.svc.Initialize(context.Background(), ports.InitializeRequest{
		MerchantID: uuid.New(),
		Amount:     money(t, "10"),
		Currency:   "EUR",
	})
	assertAppError(t, err, "VAL_003")
}

func TestTransactionService_Initialize_NoVirtualAccount(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	d.vaRepo.EXPECT().GetByMerchantID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := d.svc.Initialize(context.Background(), ports.InitializeRequest{
		MerchantID: uuid.New(),
		Amount:     money(t, "2000"),
		Currency:   domain.CurrencyNGN,
	})
	assertAppError(t, err, "NF_002")
}

func TestTransactionService_Initialize_NoPaymentMethod(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	d.vaRepo.EXPECT().GetByMerchantID(gomock.Any(), gomock.Any()).Return(&domain.VirtualAccount{}, nil)
	d.methods.EXPECT().ListForCurrency(gomock.Any(), domain.CurrencyUSD).Return(nil, nil)

	_, err := d.svc.Initialize(context.Background(), ports.InitializeRequest{
		MerchantID: uuid.New(),
		Amount:     money(t, "20"),
		Currency:   domain.CurrencyUSD,
	})
	assertAppError(t, err, "NF_003")
}

func TestTransactionService_Initialize_StoreFailureAudited(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()
	entries := expectAudit(d)

	d.vaRepo.EXPECT().GetByMerchantID(gomock.Any(), gomock.Any()).Return(&domain.VirtualAccount{}, nil)
	d.methods.EXPECT().ListForCurrency(gomock.Any(), gomock.Any()).
		Return([]domain.PaymentMethod{*percentageMethod(t, domain.TransactionTypeCard, "1.5")}, nil)
	d.keys.EXPECT().Key(domain.TransactionPrefix).Return("tx_0002", nil)
	d.txRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := d.svc.Initialize(context.Background(), ports.InitializeRequest{
		MerchantID: uuid.New(),
		Amount:     money(t, "2000"),
		Currency:   domain.CurrencyNGN,
	})
	assertAppError(t, err, "SYS_001")
	require.Len(t, *entries, 1)
	assert.Equal(t, domain.AuditEventInitializePayment, (*entries)[0].EventType)
	assert.Equal(t, domain.AuditStatusFailure, (*entries)[0].Status)
}

// ==================== Capture Tests ====================

func TestTransactionService_Capture_VirtualAccountCreditsAvailable(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	tr := pendingTransaction(t, "2000")
	method := percentageMethod(t, domain.TransactionTypeVirtualAccount, "1.5")
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)
	d.methods.EXPECT().Resolve(gomock.Any(), method.ID, domain.TransactionTypeVirtualAccount, domain.CurrencyNGN, moneyEq(t, "2000")).
		Return(method, nil)
	d.txRepo.EXPECT().UpdateCapture(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().CreditAvailable(gomock.Any(), tx, tr.MerchantID, domain.CurrencyNGN, moneyEq(t, "1970")).
		Return(&domain.MerchantBalance{}, nil)

	got, err := d.svc.Capture(context.Background(), vaCapture(t, tr.Reference, "2000", method.ID))
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, domain.TransactionStatusSuccess, got.Status)
	assert.Equal(t, domain.StateSettled, got.State())
	assert.Equal(t, "30.00", got.FeeAmount.String())
	assert.Equal(t, "1970.00", got.TotalAmount.String())
	assert.NotNil(t, got.SettledAt)
	assert.Equal(t, domain.TransactionTypeVirtualAccount, got.Type())
}

func TestTransactionService_Capture_CardCreditsPending(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	tr := pendingTransaction(t, "2000")
	method := percentageMethod(t, domain.TransactionTypeCard, "1.5")
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)
	d.methods.EXPECT().Resolve(gomock.Any(), method.ID, domain.TransactionTypeCard, domain.CurrencyNGN, gomock.Any()).
		Return(method, nil)
	d.txRepo.EXPECT().UpdateCapture(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, tr *domain.Transaction) error {
			card, ok := tr.Card()
			require.True(t, ok)
			assert.Equal(t, "1111", card.LastFour)
			assert.Equal(t, "12/30", card.Expiry)
			assert.True(t, tr.FeeRate.Equal(decimal.RequireFromString("1.5")))
			return nil
		},
	)
	d.ledger.EXPECT().CreditPending(gomock.Any(), tx, tr.MerchantID, domain.CurrencyNGN, moneyEq(t, "1970")).
		Return(&domain.MerchantBalance{}, nil)

	got, err := d.svc.Capture(context.Background(), cardCapture(t, tr.Reference, "2000", method.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, got.Status)
	assert.Equal(t, domain.StateCaptured, got.State())
	assert.Nil(t, got.SettledAt)
}

func TestTransactionService_Capture_FlatFeeLeavesRateZero(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	tr := pendingTransaction(t, "2000")
	method := percentageMethod(t, domain.TransactionTypeCard, "0")
	method.FeeType = domain.FeeTypeFlat
	method.FeeAmount = money(t, "50")
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)
	d.methods.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(method, nil)
	d.txRepo.EXPECT().UpdateCapture(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().CreditPending(gomock.Any(), tx, tr.MerchantID, domain.CurrencyNGN, moneyEq(t, "1950")).
		Return(&domain.MerchantBalance{}, nil)

	got, err := d.svc.Capture(context.Background(), cardCapture(t, tr.Reference, "2000", method.ID))
	require.NoError(t, err)
	assert.True(t, got.FeeRate.IsZero())
	assert.Equal(t, "50.00", got.FeeAmount.String())
}

func TestTransactionService_Capture_RejectsBeforeLedger(t *testing.T) {
	captured := func(t *testing.T) *domain.Transaction {
		tr := pendingTransaction(t, "2000")
		tr.Details = domain.CardDetails{LastFour: "1111"}
		return tr
	}
	settled := func(t *testing.T) *domain.Transaction {
		tr := pendingTransaction(t, "2000")
		tr.Status = domain.TransactionStatusSuccess
		tr.Details = domain.VirtualAccountDetails{AccountNumber: "0123456789"}
		return tr
	}

	tests := []struct {
		name     string
		stored   func(t *testing.T) *domain.Transaction
		amount   string
		currency domain.Currency
		wantCode string
	}{
		{"already captured", captured, "2000", domain.CurrencyNGN, "CONF_002"},
		{"already settled", settled, "2000", domain.CurrencyNGN, "CONF_001"},
		{"amount mismatch", func(t *testing.T) *domain.Transaction { return pendingTransaction(t, "2000") }, "1999.99", domain.CurrencyNGN, "CONF_003"},
		{"currency mismatch", func(t *testing.T) *domain.Transaction { return pendingTransaction(t, "2000") }, "2000", domain.CurrencyUSD, "CONF_004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupTransactionService(t)
			defer d.ctrl.Finish()
			entries := expectAudit(d)

			tr := tt.stored(t)
			tx := &mockTx{}
			d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)

			req := cardCapture(t, tr.Reference, tt.amount, uuid.New())
			req.Currency = tt.currency
			_, err := d.svc.Capture(context.Background(), req)
			assertAppError(t, err, tt.wantCode)
			assert.True(t, tx.rolledBack)
			assert.False(t, tx.committed)
			require.Len(t, *entries, 1)
			assert.Equal(t, domain.AuditEventCapturePayment, (*entries)[0].EventType)
			assert.Equal(t, domain.ActorCustomer, *(*entries)[0].ActorType)
		})
	}
}

func TestTransactionService_Capture_InputValidation(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	req := cardCapture(t, "tx_1", "2000", uuid.New())
	req.Card = nil
	_, err := d.svc.Capture(context.Background(), req)
	assertAppError(t, err, "VAL_001")

	req = cardCapture(t, "tx_1", "2000", uuid.New())
	req.Card.CVV = ""
	_, err = d.svc.Capture(context.Background(), req)
	assertAppError(t, err, "VAL_001")

	req = vaCapture(t, "tx_1", "2000", uuid.New())
	req.VirtualAccount = nil
	_, err = d.svc.Capture(context.Background(), req)
	assertAppError(t, err, "VAL_001")

	req = vaCapture(t, "tx_1", "2000", uuid.New())
	req.Type = "ussd"
	_, err = d.svc.Capture(context.Background(), req)
	assertAppError(t, err, "VAL_001")
}

func TestTransactionService_Capture_NotFound(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()
	expectAudit(d)

	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, "tx_missing").Return(nil, nil)

	_, err := d.svc.Capture(context.Background(), cardCapture(t, "tx_missing", "2000", uuid.New()))
	assertAppError(t, err, "NF_001")
}

func TestTransactionService_Capture_PaymentMethodRejected(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()
	expectAudit(d)

	tr := pendingTransaction(t, "50")
	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)
	d.methods.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrPaymentMethodBelowMinimum())

	_, err := d.svc.Capture(context.Background(), cardCapture(t, tr.Reference, "50", uuid.New()))
	assertAppError(t, err, "PM_004")
	assert.True(t, tx.rolledBack)
}

func TestTransactionService_Capture_LedgerFailureRollsBack(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()
	entries := expectAudit(d)

	tr := pendingTransaction(t, "2000")
	method := percentageMethod(t, domain.TransactionTypeCard, "1.5")
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)
	d.methods.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(method, nil)
	d.txRepo.EXPECT().UpdateCapture(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().CreditPending(gomock.Any(), tx, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrBalanceNotFound)

	_, err := d.svc.Capture(context.Background(), cardCapture(t, tr.Reference, "2000", method.ID))
	assertAppError(t, err, "NF_001")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	require.Len(t, *entries, 1)
	assert.Equal(t, tr.ID.String(), *(*entries)[0].TableID)
}

func TestTransactionService_Capture_RollbackFailureIsCompensationFailure(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()
	expectAudit(d)

	tr := pendingTransaction(t, "2000")
	method := percentageMethod(t, domain.TransactionTypeCard, "1.5")
	tx := &mockTx{rollbackErr: errors.New("conn closed")}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)
	d.methods.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(method, nil)
	d.txRepo.EXPECT().UpdateCapture(gomock.Any(), tx, gomock.Any()).Return(errors.New("write failed"))

	_, err := d.svc.Capture(context.Background(), cardCapture(t, tr.Reference, "2000", method.ID))
	assertAppError(t, err, "SYS_009")
}

func TestTransactionService_Capture_CommitFailure(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()
	expectAudit(d)

	tr := pendingTransaction(t, "2000")
	method := percentageMethod(t, domain.TransactionTypeVirtualAccount, "1.5")
	tx := &mockTx{commitErr: errors.New("serialization failure")}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)
	d.methods.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(method, nil)
	d.txRepo.EXPECT().UpdateCapture(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().CreditAvailable(gomock.Any(), tx, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.MerchantBalance{}, nil)

	_, err := d.svc.Capture(context.Background(), vaCapture(t, tr.Reference, "2000", method.ID))
	assertAppError(t, err, "SYS_001")
	assert.True(t, tx.rolledBack)
}

// ==================== Settle Tests ====================

func capturedCard(t *testing.T) *domain.Transaction {
	tr := pendingTransaction(t, "2000")
	tr.Details = domain.CardDetails{LastFour: "1111", HolderName: "Ada Obi", Expiry: "12/30"}
	tr.FeeAmount = money(t, "30")
	tr.TotalAmount = money(t, "1970")
	return tr
}

func TestTransactionService_Settle_MovesPendingToAvailable(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	tr := capturedCard(t)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)
	d.txRepo.EXPECT().MarkSettled(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().Settle(gomock.Any(), tx, tr.MerchantID, domain.CurrencyNGN, moneyEq(t, "1970")).
		Return(&domain.MerchantBalance{}, nil)

	got, err := d.svc.Settle(context.Background(), ports.SettleRequest{
		Reference:  tr.Reference,
		Amount:     money(t, "2000"),
		Currency:   domain.CurrencyNGN,
		CardNumber: "4111-1111-1111-1111",
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, domain.TransactionStatusSuccess, got.Status)
	assert.NotNil(t, got.SettledAt)
}

func TestTransactionService_Settle_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		stored   func(t *testing.T) *domain.Transaction
		card     string
		amount   string
		wantCode string
	}{
		{"card mismatch", capturedCard, "4111111111112222", "2000", "CONF_006"},
		{"amount mismatch", capturedCard, "4111111111111111", "2100", "CONF_003"},
		{"already settled", func(t *testing.T) *domain.Transaction {
			tr := capturedCard(t)
			tr.Status = domain.TransactionStatusSuccess
			return tr
		}, "4111111111111111", "2000", "CONF_001"},
		{"virtual account transaction", func(t *testing.T) *domain.Transaction {
			tr := pendingTransaction(t, "2000")
			tr.Details = domain.VirtualAccountDetails{AccountNumber: "0123456789"}
			return tr
		}, "4111111111111111", "2000", "CONF_005"},
		{"not captured", func(t *testing.T) *domain.Transaction { return pendingTransaction(t, "2000") }, "4111111111111111", "2000", "CONF_007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupTransactionService(t)
			defer d.ctrl.Finish()
			entries := expectAudit(d)

			tr := tt.stored(t)
			tx := &mockTx{}
			d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			d.txRepo.EXPECT().GetByReferenceForUpdate(gomock.Any(), tx, tr.Reference).Return(tr, nil)

			_, err := d.svc.Settle(context.Background(), ports.SettleRequest{
				Reference:  tr.Reference,
				Amount:     money(t, tt.amount),
				Currency:   domain.CurrencyNGN,
				CardNumber: tt.card,
			})
			assertAppError(t, err, tt.wantCode)
			assert.True(t, tx.rolledBack)
			require.Len(t, *entries, 1)
			assert.Equal(t, domain.AuditEventSettleCardPayment, (*entries)[0].EventType)
			assert.Equal(t, domain.ActorProcessor, *(*entries)[0].ActorType)
		})
	}
}

func TestTransactionService_Settle_InvalidCardNumber(t *testing.T) {
	d := setupTransactionService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Settle(context.Background(), ports.SettleRequest{
		Reference:  "tx_1",
		Amount:     money(t, "2000"),
		Currency:   domain.CurrencyNGN,
		CardNumber: "41a",
	})
	assertAppError(t, err, "VAL_001")
}

func TestCardLastFour(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"4111 1111 1111 1234", "1234", true},
		{"4111-1111-1111-9876", "9876", true},
		{"123", "", false},
		{"4111x1111", "", false},
	}
	for _, tt := range tests {
		got, ok := cardLastFour(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
