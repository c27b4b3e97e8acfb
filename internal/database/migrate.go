package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed migrations/001_initial.up.sql
var initialMigrationSQL string

//go:embed migrations/002_audit.up.sql
var auditMigrationSQL string

var requiredTables = []string{
	"admins",
	"users",
	"refresh_tokens",
}

// EnsureSchema creates the account tables on an empty database and then
// applies incremental migrations. Every statement is idempotent.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	exists, err := db.hasTables(ctx, requiredTables)
	if err != nil {
		return fmt.Errorf("check existing tables: %w", err)
	}

	if !exists {
		slog.Info("database schema missing tables; applying initial migration")
		if _, err := db.Pool.Exec(ctx, initialMigrationSQL); err != nil {
			return fmt.Errorf("apply initial migration: %w", err)
		}

		exists, err = db.hasTables(ctx, requiredTables)
		if err != nil {
			return fmt.Errorf("re-check tables after migration: %w", err)
		}
		if !exists {
			return fmt.Errorf("schema initialization incomplete: required tables are still missing")
		}
	}

	// 002: audit trail.
	hasAudit, err := db.hasTables(ctx, []string{"audit_entries"})
	if err != nil {
		return fmt.Errorf("check audit table: %w", err)
	}
	if !hasAudit {
		slog.Info("applying audit migration (002)")
		if _, err := db.Pool.Exec(ctx, auditMigrationSQL); err != nil {
			return fmt.Errorf("apply audit migration: %w", err)
		}
	}

	slog.Info("database schema ensured")
	return nil
}

func (db *DB) hasTables(ctx context.Context, tables []string) (bool, error) {
	var count int
	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_name = ANY($1)
	`, tables).Scan(&count)
	if err != nil {
		return false, err
	}

	return count == len(tables), nil
}
