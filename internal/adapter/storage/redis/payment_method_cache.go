package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"collection-gateway/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// PaymentMethodCache implements ports.PaymentMethodCache. Methods are
// stored as JSON, once by id and once per currency list.
type PaymentMethodCache struct {
	client goredis.UniversalClient
	prefix string
}

// NewPaymentMethodCache creates a new Redis-backed payment method cache.
func NewPaymentMethodCache(client goredis.UniversalClient) *PaymentMethodCache {
	return &PaymentMethodCache{
		client: client,
		prefix: "payment_method:",
	}
}

// Get returns nil, nil on a cache miss.
func (c *PaymentMethodCache) Get(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	found, err := c.get(ctx, c.prefix+"id:"+id.String(), &m)
	if err != nil || !found {
		return nil, err
	}
	return &m, nil
}

// Set caches a single payment method for ttl.
func (c *PaymentMethodCache) Set(ctx context.Context, method *domain.PaymentMethod, ttl time.Duration) error {
	return c.set(ctx, c.prefix+"id:"+method.ID.String(), method, ttl)
}

// GetByCurrency returns nil, nil on a cache miss.
func (c *PaymentMethodCache) GetByCurrency(ctx context.Context, currency domain.Currency) ([]domain.PaymentMethod, error) {
	var methods []domain.PaymentMethod
	found, err := c.get(ctx, c.prefix+"currency:"+string(currency), &methods)
	if err != nil || !found {
		return nil, err
	}
	return methods, nil
}

// SetByCurrency caches the available methods for currency for ttl.
func (c *PaymentMethodCache) SetByCurrency(ctx context.Context, currency domain.Currency, methods []domain.PaymentMethod, ttl time.Duration) error {
	return c.set(ctx, c.prefix+"currency:"+string(currency), methods, ttl)
}

func (c *PaymentMethodCache) get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis payment method get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached payment method: %w", err)
	}
	return true, nil
}

func (c *PaymentMethodCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode payment method: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis payment method set: %w", err)
	}
	return nil
}
