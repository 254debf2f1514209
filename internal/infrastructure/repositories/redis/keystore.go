package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
	"github.com/vopenia-io/meet/pkg/tracing"
)

const scanBatchSize = 100

// RedisKeyStore is the shared TTL store used when several instances serve
// the same rooms. Keys are stored verbatim so entries written by other
// deployments of the lobby remain visible.
type RedisKeyStore struct {
	client *redis.Client
}

func NewRedisKeyStore(client *redis.Client) *RedisKeyStore {
	return &RedisKeyStore{client: client}
}

var _ ports.KeyStore = (*RedisKeyStore)(nil)

func (s *RedisKeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, "get")
	defer span.End()

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to get key from Redis: %w", err)
	}
	return data, nil
}

func (s *RedisKeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := tracing.TraceStoreOperation(ctx, "set")
	defer span.End()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to set key in Redis: %w", err)
	}
	return nil
}

func (s *RedisKeyStore) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, "touch")
	defer span.End()

	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		tracing.RecordError(ctx, err)
		return false, fmt.Errorf("failed to touch key in Redis: %w", err)
	}
	return ok, nil
}

func (s *RedisKeyStore) Delete(ctx context.Context, key string) error {
	ctx, span := tracing.TraceStoreOperation(ctx, "delete")
	defer span.End()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to delete key from Redis: %w", err)
	}
	return nil
}

func (s *RedisKeyStore) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := tracing.TraceStoreOperation(ctx, "delete_many")
	defer span.End()

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to delete keys from Redis: %w", err)
	}
	return nil
}

// ScanPrefix walks the keyspace with SCAN so large deployments are not
// blocked the way KEYS would block them.
func (s *RedisKeyStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	ctx, span := tracing.TraceStoreOperation(ctx, "scan_prefix")
	defer span.End()

	var keys []string
	iter := s.client.Scan(ctx, 0, escapeGlob(prefix)+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to scan keys in Redis: %w", err)
	}
	return dedupe(keys), nil
}

func (s *RedisKeyStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	values := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return values, nil
	}

	ctx, span := tracing.TraceStoreOperation(ctx, "get_many")
	defer span.End()

	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to get keys from Redis: %w", err)
	}
	for i, v := range raw {
		// expired between SCAN and MGET
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			values[keys[i]] = []byte(str)
		}
	}
	return values, nil
}

func (s *RedisKeyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}

// SCAN may return a key more than once
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
