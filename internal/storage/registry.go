// Package storage builds the configured domain.Storage backend from
// storage_config.storage_type and storage_config.options.
package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/openprocurement/bridge-basic/internal/domain"
	"github.com/openprocurement/bridge-basic/internal/storage/memory"
	"github.com/openprocurement/bridge-basic/internal/storage/postgresstorage"
	"github.com/openprocurement/bridge-basic/internal/storage/redisstorage"
)

// Factory builds a domain.Storage from storage_config.options, selected by
// storage_config.storage_type.
type Factory func(ctx context.Context, opts map[string]interface{}) (domain.Storage, error)

// Registry maps storage_type to its Factory, realizing the "discovery at
// import" -> explicit compile-time registry design note.
var Registry = map[string]Factory{
	"memory":   newMemory,
	"postgres": newPostgres,
	"redis":    newRedis,
}

func newMemory(context.Context, map[string]interface{}) (domain.Storage, error) {
	return memory.New(), nil
}

func newPostgres(ctx context.Context, opts map[string]interface{}) (domain.Storage, error) {
	dsn, _ := opts["dsn"].(string)
	if dsn == "" {
		return nil, fmt.Errorf("storage: postgres storage_type requires options.dsn")
	}

	pool, err := postgresstorage.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: postgres connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresstorage.Schema); err != nil {
		return nil, fmt.Errorf("storage: postgres schema: %w", err)
	}
	return postgresstorage.New(pool), nil
}

func newRedis(ctx context.Context, opts map[string]interface{}) (domain.Storage, error) {
	addr, _ := opts["addr"].(string)
	if addr == "" {
		addr = "localhost:6379"
	}
	prefix, _ := opts["prefix"].(string)

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage: redis connect: %w", err)
	}
	return redisstorage.New(client, prefix, 0), nil
}
