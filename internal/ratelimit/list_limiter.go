package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/billingledger/internal/config"
)

const keyTransactionListTenant = "ledger:transactions:list:tenant:%s"

// ListLimiter bounds how often one tenant may page the transaction feed.
// A nil limiter allows everything.
type ListLimiter struct {
	client *redis.Client
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewListLimiter(cfg config.Config) (*ListLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	return NewListLimiterWithClient(client, limitCfg.Rate, limitCfg.Burst)
}

func NewListLimiterWithClient(client *redis.Client, rate float64, burst int) (*ListLimiter, error) {
	if rate <= 0 || burst <= 0 {
		return nil, fmt.Errorf("transaction list rate limit: %w", ErrInvalidRate)
	}
	return &ListLimiter{
		client: client,
		bucket: NewTokenBucket(client),
		rate:   rate,
		burst:  burst,
	}, nil
}

func (l *ListLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowTenant takes one list request from the tenant's bucket.
func (l *ListLimiter) AllowTenant(ctx context.Context, tenantID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrEmptyKey
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyTransactionListTenant, tenantID), l.rate, l.burst)
}

func (l *ListLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
