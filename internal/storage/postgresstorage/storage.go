package postgresstorage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openprocurement/bridge-basic/internal/domain"
)

// PgxPool is a minimal subset of pgxpool.Pool used by Storage, matching the
// teacher's PgxPool interface in internal/adapter/repo/postgres so the same
// mockery-generated mock shape applies.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Storage persists ResourceItems in a single `resource_items` table, keyed
// by id.
type Storage struct {
	Pool PgxPool
}

// New constructs a Storage over the given pool.
func New(pool PgxPool) *Storage {
	return &Storage{Pool: pool}
}

// Schema is the DDL a deployment runs once to provision the storage table.
const Schema = `
CREATE TABLE IF NOT EXISTS resource_items (
	id TEXT PRIMARY KEY,
	date_modified TIMESTAMPTZ NOT NULL,
	procurement_method_type TEXT NOT NULL,
	data JSONB NOT NULL DEFAULT '{}'::jsonb
)`

// Filter keeps items that are new or strictly newer than the stored
// dateModified, looking up the whole batch in a single query.
func (s *Storage) Filter(ctx context.Context, items []domain.ResourceItem) ([]domain.ResourceItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("storage.postgres")
	ctx, span := tracer.Start(ctx, "resource_items.Filter")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "resource_items"),
	)

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	rows, err := s.Pool.Query(ctx, `SELECT id, date_modified FROM resource_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("op=postgresstorage.Filter: %w", err)
	}
	defer rows.Close()

	stored := make(map[string]domain.ResourceItem, len(ids))
	for rows.Next() {
		var id string
		var item domain.ResourceItem
		if err := rows.Scan(&id, &item.DateModified); err != nil {
			return nil, fmt.Errorf("op=postgresstorage.Filter: scan: %w", err)
		}
		stored[id] = item
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=postgresstorage.Filter: %w", err)
	}

	survivors := make([]domain.ResourceItem, 0, len(items))
	for _, item := range items {
		existing, ok := stored[item.ID]
		if !ok || item.DateModified.After(existing.DateModified) {
			survivors = append(survivors, item)
		}
	}
	return survivors, nil
}

// Upsert inserts or replaces one ResourceItem.
func (s *Storage) Upsert(ctx context.Context, item domain.ResourceItem) error {
	tracer := otel.Tracer("storage.postgres")
	ctx, span := tracer.Start(ctx, "resource_items.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "resource_items"),
	)

	data, err := json.Marshal(item.Data)
	if err != nil {
		return fmt.Errorf("op=postgresstorage.Upsert: marshal data: %w", err)
	}

	const q = `
INSERT INTO resource_items (id, date_modified, procurement_method_type, data)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
	date_modified = excluded.date_modified,
	procurement_method_type = excluded.procurement_method_type,
	data = excluded.data`

	if _, err := s.Pool.Exec(ctx, q, item.ID, item.DateModified, item.ProcurementMethodType, data); err != nil {
		return fmt.Errorf("op=postgresstorage.Upsert: %w", err)
	}
	return nil
}
