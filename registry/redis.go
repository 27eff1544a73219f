package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client the registry drives. It
// exists so the registry contract can be exercised against an in-process
// fake without a running redis.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	TxPipeline() redis.Pipeliner
}

// RedisRegistry is a Registry backed by redis, for deployments where
// several download hosts must honor the same token space. Both directions
// of the binding are stored as a key pair under a common prefix; the token
// TTL is enforced natively by redis key expiry.
//
// The session layer is the only writer for a given connection, so the
// read-then-write in IssueToken and RevokeToken does not need a
// distributed lock.
type RedisRegistry[C comparable] struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisRegistry creates a redis-backed registry. A ttl of zero stores
// bindings without expiry, matching the in-memory behavior.
//
// Parameters:
//   - client: Connected redis client; the registry does not close it
//   - prefix: Key namespace, e.g. "resourced"; must not be empty
//   - ttl: How long an issued token stays valid, or 0 for no expiry
//
// Returns:
//   - A new RedisRegistry
func NewRedisRegistry[C comparable](client RedisClient, prefix string, ttl time.Duration) *RedisRegistry[C] {
	return &RedisRegistry[C]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisRegistry[C]) connKey(conn C) string {
	return fmt.Sprintf("%s:conn:%v", r.prefix, conn)
}

func (r *RedisRegistry[C]) tokenKey(token string) string {
	return fmt.Sprintf("%s:token:%s", r.prefix, token)
}

// IssueToken implements Registry. Any previous token held by the
// connection is deleted in the same pipeline that installs the new pair.
func (r *RedisRegistry[C]) IssueToken(ctx context.Context, conn C) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	old, err := r.client.Get(ctx, r.connKey(conn)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis get error: %w", err)
	}

	pipe := r.client.TxPipeline()
	if old != "" {
		pipe.Del(ctx, r.tokenKey(old))
	}

	pipe.Set(ctx, r.connKey(conn), token, r.ttl)
	pipe.Set(ctx, r.tokenKey(token), fmt.Sprintf("%v", conn), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store token binding: %w", err)
	}

	return token, nil
}

// RevokeToken implements Registry. Idempotent.
func (r *RedisRegistry[C]) RevokeToken(ctx context.Context, conn C) error {
	token, err := r.client.Get(ctx, r.connKey(conn)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get error: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.connKey(conn))
	pipe.Del(ctx, r.tokenKey(token))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete token binding: %w", err)
	}

	return nil
}

// IsTokenValid implements Registry. Expired keys are removed by redis, so
// a plain existence check covers both revocation and TTL.
func (r *RedisRegistry[C]) IsTokenValid(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}

	return n == 1, nil
}
