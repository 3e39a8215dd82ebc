// Package redisstorage implements domain.Storage over go-redis/v9, used for
// low-latency "already seen" checks ahead of (or instead of) a durable
// backend — the teacher's own redis pairing in internal/service/ratelimiter,
// generalized from rate-limit buckets to the bridge's filter/upsert contract.
package redisstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// Storage keeps one dateModified timestamp per item id under a configurable
// key prefix; Upsert overwrites it, Filter compares against it.
type Storage struct {
	Client *redis.Client
	Prefix string
	// TTL optionally expires entries so the "already seen" set doesn't grow
	// unbounded; zero means entries never expire.
	TTL time.Duration
}

// New constructs a Storage over client. prefix defaults to "resource_items:"
// when empty.
func New(client *redis.Client, prefix string, ttl time.Duration) *Storage {
	if prefix == "" {
		prefix = "resource_items:"
	}
	return &Storage{Client: client, Prefix: prefix, TTL: ttl}
}

func (s *Storage) key(id string) string {
	return s.Prefix + id
}

// Filter keeps items that are new or strictly newer than the stored
// dateModified.
func (s *Storage) Filter(ctx context.Context, items []domain.ResourceItem) ([]domain.ResourceItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	survivors := make([]domain.ResourceItem, 0, len(items))
	for _, item := range items {
		raw, err := s.Client.Get(ctx, s.key(item.ID)).Result()
		if errors.Is(err, redis.Nil) {
			survivors = append(survivors, item)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("op=redisstorage.Filter: %w", err)
		}

		stored, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("op=redisstorage.Filter: parse stored dateModified: %w", err)
		}
		if item.DateModified.After(stored) {
			survivors = append(survivors, item)
		}
	}
	return survivors, nil
}

// Upsert records item's dateModified, replacing any prior value.
func (s *Storage) Upsert(ctx context.Context, item domain.ResourceItem) error {
	raw := item.DateModified.UTC().Format(time.RFC3339Nano)
	if err := s.Client.Set(ctx, s.key(item.ID), raw, s.TTL).Err(); err != nil {
		return fmt.Errorf("op=redisstorage.Upsert: %w", err)
	}
	return nil
}
