package token

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Registry records consumed grant JTIs in Redis so an approval link can be
// exercised at most once. It is optional hardening on top of the workflow's
// state guard, which already neutralizes replay; when Redis is not
// configured the service runs without it.
type Registry struct {
	client *redis.Client
	prefix string
}

func NewRegistry(redisURL string) (*Registry, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRegistryWithClient(client), nil
}

func NewRegistryWithClient(client *redis.Client) *Registry {
	return &Registry{client: client, prefix: "grant:"}
}

// Consume marks a JTI as used and reports whether this call was the first.
// The key lives only until the grant would have expired anyway.
func (r *Registry) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	first, err := r.client.SetNX(ctx, r.prefix+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("consume grant %s: %w", jti, err)
	}
	return first, nil
}

func (r *Registry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Registry) Close() error {
	return r.client.Close()
}
