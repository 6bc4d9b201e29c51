package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const transactionsTable = "transactions"

// TransactionServiceImpl implements ports.TransactionService.
// Capture and Settle each run as one database transaction: the row update
// and the ledger mutation commit together or not at all.
type TransactionServiceImpl struct {
	txRepo      ports.TransactionRepository
	vaRepo      ports.VirtualAccountRepository
	ledger      ports.BalanceLedger
	methods     ports.PaymentMethodService
	audit       ports.AuditService
	keys        ports.KeyGenerator
	transactor  ports.DBTransactor
	callTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewTransactionService creates a new TransactionServiceImpl.
func NewTransactionService(
	txRepo ports.TransactionRepository,
	vaRepo ports.VirtualAccountRepository,
	ledger ports.BalanceLedger,
	methods ports.PaymentMethodService,
	audit ports.AuditService,
	keys ports.KeyGenerator,
	transactor ports.DBTransactor,
	callTimeout time.Duration,
	log zerolog.Logger,
) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		txRepo:      txRepo,
		vaRepo:      vaRepo,
		ledger:      ledger,
		methods:     methods,
		audit:       audit,
		keys:        keys,
		transactor:  transactor,
		callTimeout: callTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// Initialize creates a pending transaction the customer can later pay.
func (s *TransactionServiceImpl) Initialize(ctx context.Context, req ports.InitializeRequest) (*ports.InitializeResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if _, ok := domain.ParseCurrency(string(req.Currency)); !ok {
		return nil, apperror.ErrUnsupportedCurrency(string(req.Currency))
	}

	va, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.VirtualAccount, error) {
		return s.vaRepo.GetByMerchantID(ctx, req.MerchantID)
	})
	if err != nil {
		return nil, dependencyError(err)
	}
	if va == nil {
		return nil, apperror.ErrVirtualAccountMissing()
	}

	methods, err := s.methods.ListForCurrency(ctx, req.Currency)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, apperror.ErrNoPaymentMethod(string(req.Currency))
	}

	reference, err := s.keys.Key(domain.TransactionPrefix)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	now := s.now()
	t := &domain.Transaction{
		ID:          uuid.New(),
		Reference:   reference,
		MerchantID:  req.MerchantID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Customer:    req.Customer,
		Status:      domain.TransactionStatusPending,
		FeeRate:     decimal.Zero,
		FeeAmount:   domain.Zero,
		TotalAmount: domain.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := exec(ctx, s.callTimeout, func(ctx context.Context) error {
		return s.txRepo.Create(ctx, t)
	}); err != nil {
		err = dependencyError(err)
		s.audit.Record(ctx, failureEntry(domain.AuditEventInitializePayment, transactionsTable, t.ID.String(),
			domain.ActorMerchant, req.MerchantID.String(), map[string]any{
				"reference": t.Reference,
				"amount":    t.Amount.String(),
				"currency":  string(t.Currency),
			}, err))
		return nil, err
	}

	s.log.Info().
		Str("reference", t.Reference).
		Str("merchant_id", t.MerchantID.String()).
		Str("amount", t.Amount.String()).
		Str("currency", string(t.Currency)).
		Msg("transaction initialized")

	return &ports.InitializeResult{
		Transaction:    t,
		PaymentMethods: methods,
		VirtualAccount: va,
	}, nil
}

// Capture pays a pending transaction. A virtual-account payment settles
// immediately and credits the available balance; a card payment credits the
// pending balance and waits for the processor's settlement.
func (s *TransactionServiceImpl) Capture(ctx context.Context, req ports.CaptureRequest) (*domain.Transaction, error) {
	details, err := captureDetails(req)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	attempted := map[string]any{
		"reference":         req.Reference,
		"amount":            req.Amount.String(),
		"currency":          string(req.Currency),
		"tx_type":           string(req.Type),
		"payment_method_id": req.PaymentMethodID.String(),
	}

	t, err := s.capture(ctx, req, details)
	if err != nil {
		tableID := ""
		if t != nil {
			tableID = t.ID.String()
		}
		s.audit.Record(ctx, failureEntry(domain.AuditEventCapturePayment, transactionsTable, tableID,
			domain.ActorCustomer, "", attempted, err))
		s.log.Warn().Err(err).Str("reference", req.Reference).Msg("capture failed")
		return nil, err
	}

	s.log.Info().
		Str("reference", t.Reference).
		Str("tx_type", string(t.Type())).
		Str("status", string(t.Status)).
		Str("fee", t.FeeAmount.String()).
		Str("total", t.TotalAmount.String()).
		Msg("transaction captured")
	return t, nil
}

func (s *TransactionServiceImpl) capture(ctx context.Context, req ports.CaptureRequest, details domain.PaymentDetails) (*domain.Transaction, error) {
	tx, err := call(ctx, s.callTimeout, s.transactor.Begin)
	if err != nil {
		return nil, dependencyError(err)
	}

	t, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.Transaction, error) {
		return s.txRepo.GetByReferenceForUpdate(ctx, tx, req.Reference)
	})
	if err != nil {
		return nil, discard(tx, s.callTimeout, s.log, dependencyError(err))
	}
	if t == nil {
		return nil, discard(tx, s.callTimeout, s.log, apperror.ErrNotFound("Transaction"))
	}

	next, err := checkCapture(t, req)
	if err != nil {
		return t, discard(tx, s.callTimeout, s.log, err)
	}

	method, err := s.methods.Resolve(ctx, req.PaymentMethodID, req.Type, req.Currency, req.Amount)
	if err != nil {
		return t, discard(tx, s.callTimeout, s.log, err)
	}

	fee, net := domain.ComputeFee(t.Amount, *method)

	captured := *t
	captured.Status = domain.StatusOf(next)
	captured.PaymentMethodID = &method.ID
	captured.FeeRate = decimal.Zero
	if method.FeeType == domain.FeeTypePercentage {
		captured.FeeRate = method.FeeRate
	}
	captured.FeeAmount = fee
	captured.TotalAmount = net
	captured.Details = details
	captured.UpdatedAt = s.now()
	if next == domain.StateSettled {
		settledAt := captured.UpdatedAt
		captured.SettledAt = &settledAt
	}

	if err := exec(ctx, s.callTimeout, func(ctx context.Context) error {
		return s.txRepo.UpdateCapture(ctx, tx, &captured)
	}); err != nil {
		return t, rollback(tx, dependencyError(err), s.callTimeout)
	}

	credit := s.ledger.CreditPending
	if next == domain.StateSettled {
		credit = s.ledger.CreditAvailable
	}
	if _, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.MerchantBalance, error) {
		return credit(ctx, tx, t.MerchantID, t.Currency, net)
	}); err != nil {
		return t, rollback(tx, ledgerError(err), s.callTimeout)
	}

	if err := exec(ctx, s.callTimeout, tx.Commit); err != nil {
		return t, rollback(tx, dependencyError(err), s.callTimeout)
	}
	return &captured, nil
}

// Settle applies the card processor's settlement notice: pending funds
// become available and the transaction succeeds.
func (s *TransactionServiceImpl) Settle(ctx context.Context, req ports.SettleRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	lastFour, ok := cardLastFour(req.CardNumber)
	if !ok {
		return nil, apperror.Validation("card_number must contain at least 4 digits")
	}

	t, err := s.settle(ctx, req, lastFour)
	if err != nil {
		tableID := ""
		if t != nil {
			tableID = t.ID.String()
		}
		s.audit.Record(ctx, failureEntry(domain.AuditEventSettleCardPayment, transactionsTable, tableID,
			domain.ActorProcessor, "", map[string]any{
				"reference":      req.Reference,
				"amount":         req.Amount.String(),
				"currency":       string(req.Currency),
				"card_last_four": lastFour,
			}, err))
		s.log.Warn().Err(err).Str("reference", req.Reference).Msg("settlement failed")
		return nil, err
	}

	s.log.Info().
		Str("reference", t.Reference).
		Str("total", t.TotalAmount.String()).
		Msg("card transaction settled")
	return t, nil
}

func (s *TransactionServiceImpl) settle(ctx context.Context, req ports.SettleRequest, lastFour string) (*domain.Transaction, error) {
	tx, err := call(ctx, s.callTimeout, s.transactor.Begin)
	if err != nil {
		return nil, dependencyError(err)
	}

	t, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.Transaction, error) {
		return s.txRepo.GetByReferenceForUpdate(ctx, tx, req.Reference)
	})
	if err != nil {
		return nil, discard(tx, s.callTimeout, s.log, dependencyError(err))
	}
	if t == nil {
		return nil, discard(tx, s.callTimeout, s.log, apperror.ErrNotFound("Transaction"))
	}

	if err := checkSettle(t, req, lastFour); err != nil {
		return t, discard(tx, s.callTimeout, s.log, err)
	}

	settledAt := s.now()
	settled := *t
	settled.Status = domain.TransactionStatusSuccess
	settled.SettledAt = &settledAt
	settled.UpdatedAt = settledAt

	if err := exec(ctx, s.callTimeout, func(ctx context.Context) error {
		return s.txRepo.MarkSettled(ctx, tx, &settled)
	}); err != nil {
		return t, rollback(tx, dependencyError(err), s.callTimeout)
	}

	if _, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.MerchantBalance, error) {
		return s.ledger.Settle(ctx, tx, t.MerchantID, t.Currency, t.TotalAmount)
	}); err != nil {
		return t, rollback(tx, ledgerError(err), s.callTimeout)
	}

	if err := exec(ctx, s.callTimeout, tx.Commit); err != nil {
		return t, rollback(tx, dependencyError(err), s.callTimeout)
	}
	return &settled, nil
}

// checkCapture validates a capture against the stored transaction and
// returns the state it moves to.
func checkCapture(t *domain.Transaction, req ports.CaptureRequest) (domain.State, error) {
	switch t.State() {
	case domain.StateSettled:
		return "", apperror.ErrAlreadySettled()
	case domain.StateCaptured:
		return "", apperror.ErrAlreadyCaptured()
	}
	next, ok := t.Next(domain.CaptureEvent(req.Type))
	if !ok {
		return "", apperror.ErrInvalidTransition(string(t.State()), "capture")
	}
	if !t.Amount.Equal(req.Amount) {
		return "", apperror.ErrAmountMismatch()
	}
	if t.Currency != req.Currency {
		return "", apperror.ErrCurrencyMismatch()
	}
	return next, nil
}

func checkSettle(t *domain.Transaction, req ports.SettleRequest, lastFour string) error {
	if t.Status == domain.TransactionStatusSuccess {
		return apperror.ErrAlreadySettled()
	}
	if t.Details != nil && t.Type() != domain.TransactionTypeCard {
		return apperror.ErrTypeMismatch()
	}
	if _, ok := t.Next(domain.EventSettle); !ok {
		return apperror.ErrInvalidTransition(string(t.State()), "settle")
	}
	if !t.Amount.Equal(req.Amount) {
		return apperror.ErrAmountMismatch()
	}
	if t.Currency != req.Currency {
		return apperror.ErrCurrencyMismatch()
	}
	card, _ := t.Card()
	if card.LastFour != lastFour {
		return apperror.ErrCardMismatch()
	}
	return nil
}

// captureDetails builds the stored variant. The CVV is checked for presence
// and then dropped.
func captureDetails(req ports.CaptureRequest) (domain.PaymentDetails, error) {
	switch req.Type {
	case domain.TransactionTypeCard:
		if req.Card == nil {
			return nil, apperror.Validation("card details are required for card transactions")
		}
		lastFour, ok := cardLastFour(req.Card.Number)
		if !ok {
			return nil, apperror.Validation("card_number must contain at least 4 digits")
		}
		if req.Card.CVV == "" {
			return nil, apperror.Validation("card_verification_code is required")
		}
		return domain.CardDetails{
			LastFour:   lastFour,
			HolderName: strings.TrimSpace(req.Card.HolderName),
			Expiry:     strings.ReplaceAll(req.Card.Expiry, " ", ""),
		}, nil
	case domain.TransactionTypeVirtualAccount:
		if req.VirtualAccount == nil {
			return nil, apperror.Validation("customer account details are required for virtual account transactions")
		}
		return domain.VirtualAccountDetails{
			AccountName:   strings.TrimSpace(req.VirtualAccount.AccountName),
			AccountNumber: strings.TrimSpace(req.VirtualAccount.AccountNumber),
			BankCode:      strings.TrimSpace(req.VirtualAccount.BankCode),
		}, nil
	default:
		return nil, apperror.Validation("tx_type must be either card or virtual_account")
	}
}

// cardLastFour strips spaces and dashes and returns the final four digits.
func cardLastFour(number string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)
	if len(digits) < 4 {
		return "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return digits[len(digits)-4:], true
}

// ledgerError maps balance ledger sentinels onto the error taxonomy.
func ledgerError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return apperror.ErrInsufficientFunds()
	case errors.Is(err, domain.ErrBalanceNotFound):
		return apperror.ErrNotFound("Merchant balance")
	case errors.Is(err, domain.ErrInsufficientPending):
		return apperror.InternalError(err)
	}
	return dependencyError(err)
}
