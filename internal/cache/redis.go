package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is both the SCAN COUNT hint and the DEL batch size.
const scanBatch = 100

// RedisStore is the Redis-backed Store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisStore(client), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// maxDeletePasses bounds DeletePattern when keys keep matching between passes.
const maxDeletePasses = 16

// DeletePattern iterates SCAN MATCH pattern and deletes keys in batches,
// so the full key space is never held in memory. Deleting while scanning may
// shift the cursor past live keys, so full passes repeat until one matches
// nothing.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) (int, error) {
	removed := 0
	for pass := 0; pass < maxDeletePasses; pass++ {
		matched, n, err := s.deletePass(ctx, pattern)
		removed += n
		if err != nil {
			return removed, err
		}
		if matched == 0 {
			return removed, nil
		}
	}
	return removed, nil
}

// deletePass runs one full SCAN cycle and reports keys matched and deleted.
func (s *RedisStore) deletePass(ctx context.Context, pattern string) (matched, removed int, err error) {
	batch := make([]string, 0, scanBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		matched++
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatch {
			if err := flush(); err != nil {
				return matched, removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return matched, removed, err
	}
	if err := flush(); err != nil {
		return matched, removed, err
	}
	return matched, removed, nil
}

func (s *RedisStore) DeleteByTag(ctx context.Context, tag string) (int, error) {
	return s.DeletePattern(ctx, TagPattern(tag))
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
