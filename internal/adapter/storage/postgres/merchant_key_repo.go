package postgres

import (
	"context"
	"errors"
	"fmt"

	"collection-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// MerchantKeyRepo implements ports.MerchantKeyRepository.
type MerchantKeyRepo struct {
	pool Pool
}

// NewMerchantKeyRepo creates a new MerchantKeyRepo.
func NewMerchantKeyRepo(pool Pool) *MerchantKeyRepo {
	return &MerchantKeyRepo{pool: pool}
}

// Create stores a key pair. Only the secret's digest reaches the database.
func (r *MerchantKeyRepo) Create(ctx context.Context, tx pgx.Tx, k *domain.MerchantKey) error {
	query := `INSERT INTO merchant_keys (id, merchant_id, public_key, secret_key_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, k.ID, k.MerchantID, k.PublicKey, k.SecretKeyHash, k.Active, k.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert merchant key: %w", err)
	}
	return nil
}

// GetByPublicKey looks up a key pair by its public half.
func (r *MerchantKeyRepo) GetByPublicKey(ctx context.Context, publicKey string) (*domain.MerchantKey, error) {
	query := `SELECT id, merchant_id, public_key, secret_key_hash, active, created_at
		FROM merchant_keys WHERE public_key = $1`

	k := &domain.MerchantKey{}
	err := r.pool.QueryRow(ctx, query, publicKey).Scan(
		&k.ID, &k.MerchantID, &k.PublicKey, &k.SecretKeyHash, &k.Active, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant key: %w", err)
	}
	return k, nil
}
