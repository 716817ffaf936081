// Package redis provides an applied-event ledger shared between instances.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/polkiloo/salesrollup/internal/domain/repository"
)

const defaultKeyPrefix = "salesrollup:applied:"

// Ledger marks event keys with SET NX so only the first delivery wins.
type Ledger struct {
	client    *goredis.Client
	keyPrefix string
}

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and verifies the server answers.
func New(ctx context.Context, opts Options) (*Ledger, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return NewWithClient(client, ""), nil
}

// NewWithClient wraps an existing client. An empty prefix selects the default.
func NewWithClient(client *goredis.Client, keyPrefix string) *Ledger {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Ledger{client: client, keyPrefix: keyPrefix}
}

// MarkApplied records key for ttl. It returns false when the key is already
// recorded.
func (l *Ledger) MarkApplied(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark applied: %w", err)
	}
	return ok, nil
}

// Release forgets key so a later delivery can apply it.
func (l *Ledger) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release applied mark: %w", err)
	}
	return nil
}

// HealthCheck pings the server.
func (l *Ledger) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return l.client.Ping(ctx).Err()
}

// Close closes the client.
func (l *Ledger) Close() error {
	return l.client.Close()
}

var _ repository.EventLedger = (*Ledger)(nil)
