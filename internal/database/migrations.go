package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations executes all database migrations
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Check if table exists
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = 'CATALOGO_VALORES'
		)
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if CATALOGO_VALORES table exists: %w", err)
	}

	if exists {
		return nil
	}

	// Ordem keeps the import order so a later row for the same reference and
	// year still wins when the index is rebuilt from the table.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS "CATALOGO_VALORES" (
			"ID" BIGSERIAL PRIMARY KEY,
			"Ordem" INTEGER NOT NULL,
			"Marca" TEXT NOT NULL,
			"Referencia" TEXT NOT NULL,
			"Ano" VARCHAR(16) NOT NULL,
			"Valor" TEXT NOT NULL DEFAULT '',
			"ImportadoEm" TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create CATALOGO_VALORES table: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS "idx_catalogo_valores_ordem"
		ON "CATALOGO_VALORES"("Ordem")
	`)
	if err != nil {
		return fmt.Errorf("failed to create idx_catalogo_valores_ordem: %w", err)
	}

	return nil
}
