package service

import (
	"context"
	"time"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentMethodServiceImpl implements ports.PaymentMethodService.
// Reads go through the Redis cache; a cache failure falls back to PostgreSQL.
type PaymentMethodServiceImpl struct {
	repo        ports.PaymentMethodRepository
	cache       ports.PaymentMethodCache
	cacheTTL    time.Duration
	callTimeout time.Duration
	log         zerolog.Logger
}

// NewPaymentMethodService creates a new payment method registry. cache may be nil.
func NewPaymentMethodService(
	repo ports.PaymentMethodRepository,
	cache ports.PaymentMethodCache,
	cacheTTL time.Duration,
	callTimeout time.Duration,
	log zerolog.Logger,
) *PaymentMethodServiceImpl {
	return &PaymentMethodServiceImpl{
		repo:        repo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		callTimeout: callTimeout,
		log:         log,
	}
}

// Resolve returns the payment method a capture may use, or the first rejection.
func (s *PaymentMethodServiceImpl) Resolve(
	ctx context.Context,
	methodID uuid.UUID,
	txType domain.TransactionType,
	currency domain.Currency,
	amount domain.Money,
) (*domain.PaymentMethod, error) {
	method, err := s.get(ctx, methodID)
	if err != nil {
		return nil, err
	}

	switch {
	case method == nil || method.Name != txType:
		return nil, apperror.ErrPaymentMethodNotFound()
	case !method.Supports(currency):
		return nil, apperror.ErrPaymentMethodCurrency()
	case !method.Available:
		return nil, apperror.ErrPaymentMethodUnavailable()
	case amount.LessThan(method.MinimumAmount.Decimal):
		return nil, apperror.ErrPaymentMethodBelowMinimum()
	case amount.GreaterThan(method.MaximumAmount.Decimal):
		return nil, apperror.ErrPaymentMethodAboveMaximum()
	}
	return method, nil
}

// ListForCurrency returns the available payment methods supporting currency.
func (s *PaymentMethodServiceImpl) ListForCurrency(ctx context.Context, currency domain.Currency) ([]domain.PaymentMethod, error) {
	if s.cache != nil {
		cctx, cancel := withTimeout(ctx, s.callTimeout)
		cached, err := s.cache.GetByCurrency(cctx, currency)
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Str("currency", string(currency)).Msg("payment method cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	qctx, cancel := withTimeout(ctx, s.callTimeout)
	defer cancel()
	methods, err := s.repo.ListAvailableByCurrency(qctx, currency)
	if err != nil {
		return nil, dependencyError(err)
	}

	if s.cache != nil {
		cctx, cancel := withTimeout(ctx, s.callTimeout)
		defer cancel()
		if err := s.cache.SetByCurrency(cctx, currency, methods, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("currency", string(currency)).Msg("payment method cache write failed")
		}
	}
	return methods, nil
}

func (s *PaymentMethodServiceImpl) get(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	if s.cache != nil {
		cctx, cancel := withTimeout(ctx, s.callTimeout)
		cached, err := s.cache.Get(cctx, id)
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Str("payment_method_id", id.String()).Msg("payment method cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	qctx, cancel := withTimeout(ctx, s.callTimeout)
	defer cancel()
	method, err := s.repo.GetByID(qctx, id)
	if err != nil {
		return nil, dependencyError(err)
	}
	if method == nil {
		return nil, nil
	}

	if s.cache != nil {
		cctx, cancel := withTimeout(ctx, s.callTimeout)
		defer cancel()
		if err := s.cache.Set(cctx, method, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("payment_method_id", id.String()).Msg("payment method cache write failed")
		}
	}
	return method, nil
}
