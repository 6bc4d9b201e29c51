package service

import (
	"context"
	"time"

	"collection-gateway/config"
	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const payoutsTable = "payouts"

// PayoutServiceImpl implements ports.PayoutService.
type PayoutServiceImpl struct {
	payoutRepo  ports.PayoutRepository
	ledger      ports.BalanceLedger
	audit       ports.AuditService
	keys        ports.KeyGenerator
	transactor  ports.DBTransactor
	limits      config.PayoutConfig
	callTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(
	payoutRepo ports.PayoutRepository,
	ledger ports.BalanceLedger,
	audit ports.AuditService,
	keys ports.KeyGenerator,
	transactor ports.DBTransactor,
	limits config.PayoutConfig,
	callTimeout time.Duration,
	log zerolog.Logger,
) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		payoutRepo:  payoutRepo,
		ledger:      ledger,
		audit:       audit,
		keys:        keys,
		transactor:  transactor,
		limits:      limits,
		callTimeout: callTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// RequestPayout debits the merchant's available balance and records the payout.
//
// Pipeline (single DB transaction):
//  1. Validate amount and per-currency bounds (no store access)
//  2. SELECT balance FOR UPDATE
//  3. Reject when available < amount
//  4. INSERT payout (success)
//  5. Conditional debit
//  6. COMMIT
//
// When step 4, 5 or 6 fails the transaction is rolled back and a failed
// payout record is written in a separate transaction.
func (s *PayoutServiceImpl) RequestPayout(ctx context.Context, req ports.PayoutRequest) (*domain.Payout, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	attempted := map[string]any{
		"amount":         req.Amount.String(),
		"currency":       string(req.Currency),
		"account_number": req.Destination.AccountNumber,
		"bank_code":      req.Destination.BankCode,
	}

	payout, err := s.debitAndRecord(ctx, req)
	if err != nil {
		tableID := ""
		if payout != nil {
			tableID = payout.ID.String()
		}
		s.audit.Record(ctx, failureEntry(domain.AuditEventRequestPayout, payoutsTable, tableID,
			domain.ActorMerchant, req.MerchantID.String(), attempted, err))
		s.log.Warn().Err(err).Str("merchant_id", req.MerchantID.String()).Msg("payout failed")
		return nil, err
	}

	s.log.Info().
		Str("reference", payout.Reference).
		Str("merchant_id", payout.MerchantID.String()).
		Str("amount", payout.Amount.String()).
		Str("currency", string(payout.Currency)).
		Msg("payout completed")
	return payout, nil
}

func (s *PayoutServiceImpl) validate(req ports.PayoutRequest) error {
	if !req.Amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	min, max, ok := s.limits.Bounds(string(req.Currency))
	if !ok {
		return apperror.ErrUnsupportedCurrency(string(req.Currency))
	}
	if req.Amount.LessThan(min) {
		return apperror.ErrPayoutBelowMinimum(string(req.Currency), domain.NewMoney(min).String())
	}
	if req.Amount.GreaterThan(max) {
		return apperror.ErrPayoutAboveMaximum(string(req.Currency), domain.NewMoney(max).String())
	}
	return nil
}

// debitAndRecord returns the payout it attempted alongside any error.
func (s *PayoutServiceImpl) debitAndRecord(ctx context.Context, req ports.PayoutRequest) (*domain.Payout, error) {
	tx, err := call(ctx, s.callTimeout, s.transactor.Begin)
	if err != nil {
		return nil, dependencyError(err)
	}

	balance, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.MerchantBalance, error) {
		return s.ledger.GetForUpdate(ctx, tx, req.MerchantID, req.Currency)
	})
	if err != nil {
		return nil, discard(tx, s.callTimeout, s.log, dependencyError(err))
	}
	if balance == nil {
		return nil, discard(tx, s.callTimeout, s.log, apperror.ErrNotFound("Merchant balance"))
	}
	if !balance.CanDebit(req.Amount) {
		return nil, discard(tx, s.callTimeout, s.log, apperror.ErrInsufficientFunds())
	}

	reference, err := s.keys.Key(domain.PayoutPrefix)
	if err != nil {
		return nil, discard(tx, s.callTimeout, s.log, apperror.InternalError(err))
	}

	now := s.now()
	payout := &domain.Payout{
		ID:          uuid.New(),
		MerchantID:  req.MerchantID,
		Reference:   reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      domain.PayoutStatusSuccess,
		Destination: req.Destination,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := exec(ctx, s.callTimeout, func(ctx context.Context) error {
		return s.payoutRepo.Create(ctx, tx, payout)
	}); err != nil {
		return payout, s.compensate(ctx, tx, payout, dependencyError(err))
	}

	if _, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.MerchantBalance, error) {
		return s.ledger.Debit(ctx, tx, req.MerchantID, req.Currency, req.Amount)
	}); err != nil {
		return payout, s.compensate(ctx, tx, payout, ledgerError(err))
	}

	if err := exec(ctx, s.callTimeout, tx.Commit); err != nil {
		return payout, s.compensate(ctx, tx, payout, dependencyError(err))
	}
	return payout, nil
}

// compensate rolls the unit back and persists the payout as failed.
// It returns cause unless the compensation itself failed.
func (s *PayoutServiceImpl) compensate(ctx context.Context, tx pgx.Tx, payout *domain.Payout, cause error) error {
	if err := rollback(tx, cause, s.callTimeout); apperror.CategoryOf(err) == apperror.CategoryCompensation {
		return err
	}

	failed := *payout
	failed.Status = domain.PayoutStatusFailed
	failed.UpdatedAt = s.now()

	// The request context may already be done when the failure was a timeout.
	cctx, cancel := withTimeout(context.WithoutCancel(ctx), s.callTimeout)
	defer cancel()

	err := func() error {
		ftx, err := s.transactor.Begin(cctx)
		if err != nil {
			return err
		}
		if err := s.payoutRepo.Create(cctx, ftx, &failed); err != nil {
			_ = ftx.Rollback(cctx)
			return err
		}
		return ftx.Commit(cctx)
	}()
	if err != nil {
		s.audit.Record(ctx, failureEntry(domain.AuditEventPayoutCompensation, payoutsTable, failed.ID.String(),
			domain.ActorMerchant, failed.MerchantID.String(), map[string]any{"status": string(failed.Status)}, err))
		return apperror.ErrCompensationFailed(cause, err)
	}

	*payout = failed
	return cause
}
