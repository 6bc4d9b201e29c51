package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collection-gateway/config"
	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"
	"collection-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const merchantsTable = "merchants"

// MerchantServiceImpl implements ports.MerchantService.
type MerchantServiceImpl struct {
	merchantRepo ports.MerchantRepository
	keyRepo      ports.MerchantKeyRepository
	vaRepo       ports.VirtualAccountRepository
	ledger       ports.BalanceLedger
	hasher       ports.CredentialHasher
	keys         ports.KeyGenerator
	audit        ports.AuditService
	transactor   ports.DBTransactor
	collections  config.CollectionsConfig
	callTimeout  time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewMerchantService creates a new MerchantServiceImpl.
func NewMerchantService(
	merchantRepo ports.MerchantRepository,
	keyRepo ports.MerchantKeyRepository,
	vaRepo ports.VirtualAccountRepository,
	ledger ports.BalanceLedger,
	hasher ports.CredentialHasher,
	keys ports.KeyGenerator,
	audit ports.AuditService,
	transactor ports.DBTransactor,
	collections config.CollectionsConfig,
	callTimeout time.Duration,
	log zerolog.Logger,
) *MerchantServiceImpl {
	return &MerchantServiceImpl{
		merchantRepo: merchantRepo,
		keyRepo:      keyRepo,
		vaRepo:       vaRepo,
		ledger:       ledger,
		hasher:       hasher,
		keys:         keys,
		audit:        audit,
		transactor:   transactor,
		collections:  collections,
		callTimeout:  callTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		log:          log,
	}
}

// Register creates a merchant with its key pair, virtual account and one zero
// balance per supported currency. The secret key is returned only here.
func (s *MerchantServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := call(ctx, s.callTimeout, func(ctx context.Context) (bool, error) {
		return s.merchantRepo.ExistsByEmail(ctx, email)
	})
	if err != nil {
		return nil, dependencyError(err)
	}
	if exists {
		return nil, apperror.ErrDuplicateMerchant()
	}

	resp, err := s.build(req, email)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := s.persist(ctx, resp); err != nil {
		s.audit.Record(ctx, failureEntry(domain.AuditEventRegisterMerchant, merchantsTable, resp.Merchant.ID.String(),
			domain.ActorMerchant, "", map[string]any{"email": email}, err))
		return nil, err
	}

	s.log.Info().
		Str("merchant_id", resp.Merchant.ID.String()).
		Str("account_number", resp.VirtualAccount.AccountNumber).
		Msg("merchant registered")
	return resp, nil
}

// build generates every record of a new merchant without touching the store.
func (s *MerchantServiceImpl) build(req ports.RegisterRequest, email string) (*ports.RegisterResponse, error) {
	publicKey, err := s.keys.Key(domain.PublicKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("generate public key: %w", err)
	}
	secretKey, err := s.keys.Key(domain.SecretKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("generate secret key: %w", err)
	}
	accountNumber, err := s.keys.AccountNumber()
	if err != nil {
		return nil, fmt.Errorf("generate account number: %w", err)
	}

	now := s.now()
	merchant := &domain.Merchant{
		ID:                uuid.New(),
		FirstName:         strings.TrimSpace(req.FirstName),
		MiddleName:        req.MiddleName,
		LastName:          strings.TrimSpace(req.LastName),
		Email:             email,
		PhoneNumber:       strings.TrimSpace(req.PhoneNumber),
		Address:           req.Address,
		PreferredCurrency: domain.CurrencyNGN,
		Status:            domain.MerchantStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	accountName := merchant.FullName()
	if s.collections.AccountNamePrefix != "" {
		accountName = s.collections.AccountNamePrefix + " | " + accountName
	}

	resp := &ports.RegisterResponse{
		Merchant: merchant,
		VirtualAccount: &domain.VirtualAccount{
			ID:            uuid.New(),
			MerchantID:    merchant.ID,
			AccountNumber: accountNumber,
			AccountName:   accountName,
			BankCode:      s.collections.BankCode,
			BankName:      s.collections.BankName,
			CreatedAt:     now,
		},
		PublicKey: publicKey,
		SecretKey: secretKey,
	}
	for _, cur := range domain.SupportedCurrencies {
		resp.Balances = append(resp.Balances, domain.MerchantBalance{
			ID:                       uuid.New(),
			MerchantID:               merchant.ID,
			Currency:                 cur,
			AvailableBalance:         domain.Zero,
			PendingSettlementBalance: domain.Zero,
			UpdatedAt:                now,
		})
	}
	return resp, nil
}

func (s *MerchantServiceImpl) persist(ctx context.Context, resp *ports.RegisterResponse) error {
	tx, err := call(ctx, s.callTimeout, s.transactor.Begin)
	if err != nil {
		return dependencyError(err)
	}

	key := &domain.MerchantKey{
		ID:            uuid.New(),
		MerchantID:    resp.Merchant.ID,
		PublicKey:     resp.PublicKey,
		SecretKeyHash: s.hasher.Digest(resp.SecretKey),
		Active:        true,
		CreatedAt:     resp.Merchant.CreatedAt,
	}

	steps := []func(context.Context, pgx.Tx) error{
		func(ctx context.Context, tx pgx.Tx) error { return s.merchantRepo.Create(ctx, tx, resp.Merchant) },
		func(ctx context.Context, tx pgx.Tx) error { return s.keyRepo.Create(ctx, tx, key) },
		func(ctx context.Context, tx pgx.Tx) error { return s.vaRepo.Create(ctx, tx, resp.VirtualAccount) },
	}
	for i := range resp.Balances {
		balance := &resp.Balances[i]
		steps = append(steps, func(ctx context.Context, tx pgx.Tx) error { return s.ledger.Create(ctx, tx, balance) })
	}

	for _, step := range steps {
		if err := exec(ctx, s.callTimeout, func(ctx context.Context) error { return step(ctx, tx) }); err != nil {
			if errors.Is(err, domain.ErrEmailTaken) {
				return rollback(tx, apperror.ErrDuplicateMerchant(), s.callTimeout)
			}
			return rollback(tx, dependencyError(err), s.callTimeout)
		}
	}

	if err := exec(ctx, s.callTimeout, tx.Commit); err != nil {
		return rollback(tx, dependencyError(err), s.callTimeout)
	}
	return nil
}

// Authenticate resolves the merchant owning a public/secret key pair.
func (s *MerchantServiceImpl) Authenticate(ctx context.Context, publicKey, secretKey string) (*domain.Merchant, error) {
	if publicKey == "" || secretKey == "" {
		return nil, apperror.ErrMissingCredentials()
	}

	key, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.MerchantKey, error) {
		return s.keyRepo.GetByPublicKey(ctx, publicKey)
	})
	if err != nil {
		return nil, dependencyError(err)
	}
	if key == nil || !s.hasher.Matches(secretKey, key.SecretKeyHash) {
		return nil, apperror.ErrInvalidCredentials()
	}
	if !key.Active {
		return nil, apperror.ErrMerchantKeyInactive()
	}

	merchant, err := call(ctx, s.callTimeout, func(ctx context.Context) (*domain.Merchant, error) {
		return s.merchantRepo.GetByID(ctx, key.MerchantID)
	})
	if err != nil {
		return nil, dependencyError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	switch merchant.Status {
	case domain.MerchantStatusActive:
		return merchant, nil
	case domain.MerchantStatusSuspended:
		return nil, apperror.ErrMerchantSuspended()
	default:
		return nil, apperror.ErrMerchantInactive()
	}
}
