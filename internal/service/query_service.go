package service

import (
	"context"
	"time"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// maxPageLimit caps every listing.
const maxPageLimit = 100

// queryService implements ports.QueryService.
type queryService struct {
	merchantRepo ports.MerchantRepository
	ledger       ports.BalanceLedger
	payoutRepo   ports.PayoutRepository
	txRepo       ports.TransactionRepository
	callTimeout  time.Duration
}

// NewQueryService creates the read-only listing service.
func NewQueryService(
	merchantRepo ports.MerchantRepository,
	ledger ports.BalanceLedger,
	payoutRepo ports.PayoutRepository,
	txRepo ports.TransactionRepository,
	callTimeout time.Duration,
) ports.QueryService {
	return &queryService{
		merchantRepo: merchantRepo,
		ledger:       ledger,
		payoutRepo:   payoutRepo,
		txRepo:       txRepo,
		callTimeout:  callTimeout,
	}
}

// checkPage rejects a non-positive limit or a negative offset and caps the limit.
func checkPage(p *ports.Page) error {
	if p.Limit <= 0 || p.Offset < 0 {
		return apperror.ErrInvalidPagination()
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return nil
}

// ListMerchants returns a page of merchants, optionally filtered by first name.
func (s *queryService) ListMerchants(ctx context.Context, params ports.MerchantListParams) ([]domain.Merchant, int64, error) {
	if err := checkPage(&params.Page); err != nil {
		return nil, 0, err
	}
	ctx, cancel := withTimeout(ctx, s.callTimeout)
	defer cancel()

	merchants, total, err := s.merchantRepo.List(ctx, params)
	if err != nil {
		return nil, 0, dependencyError(err)
	}
	return merchants, total, nil
}

// GetMerchant returns a single merchant.
func (s *queryService) GetMerchant(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	merchant, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.Merchant, error) {
		return s.merchantRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, dependencyError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("Merchant")
	}
	return merchant, nil
}

// GetBalances returns one balance per currency held by the merchant.
func (s *queryService) GetBalances(ctx context.Context, merchantID uuid.UUID) ([]domain.MerchantBalance, error) {
	balances, err := call(ctx, s.callTimeout, func(ctx context.Context) ([]domain.MerchantBalance, error) {
		return s.ledger.ListByMerchant(ctx, merchantID)
	})
	if err != nil {
		return nil, dependencyError(err)
	}
	if len(balances) == 0 {
		return nil, apperror.ErrNotFound("Merchant balance")
	}
	return balances, nil
}

// ListPayouts returns a page of payouts, optionally scoped to one merchant.
func (s *queryService) ListPayouts(ctx context.Context, params ports.PayoutListParams) ([]domain.Payout, int64, error) {
	if err := checkPage(&params.Page); err != nil {
		return nil, 0, err
	}
	ctx, cancel := withTimeout(ctx, s.callTimeout)
	defer cancel()

	payouts, total, err := s.payoutRepo.List(ctx, params)
	if err != nil {
		return nil, 0, dependencyError(err)
	}
	return payouts, total, nil
}

// GetPayout returns a single payout.
func (s *queryService) GetPayout(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	payout, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.Payout, error) {
		return s.payoutRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, dependencyError(err)
	}
	if payout == nil {
		return nil, apperror.ErrNotFound("Payout")
	}
	return payout, nil
}

// ListTransactions returns a page of transactions.
func (s *queryService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if err := checkPage(&params.Page); err != nil {
		return nil, 0, err
	}
	ctx, cancel := withTimeout(ctx, s.callTimeout)
	defer cancel()

	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, dependencyError(err)
	}
	return txns, total, nil
}
