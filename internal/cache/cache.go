// Package cache provides the shared TTL key/value store used for query
// results, single tickers, the broadcast snapshot and the refresh guard.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("cache: store closed")

// Store is a concurrency-safe key/value store with per-key TTL.
//
// A missing or expired key is reported as (nil, false, nil). Errors mean the
// store itself is unavailable; consumers treat them as a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// DeletePattern removes every key matching a glob pattern and returns the count.
	DeletePattern(ctx context.Context, pattern string) (int, error)
	// DeleteByTag removes every key starting with tag.
	DeleteByTag(ctx context.Context, tag string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// TagPattern returns the glob pattern a tag expands to.
func TagPattern(tag string) string {
	return tag + "*"
}

// GetJSON reads key and decodes it into dst. A value that cannot be decoded
// is reported as a miss together with the decode error.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b, ttl)
}
