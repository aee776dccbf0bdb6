package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"valuation-catalog-api/internal/model"
)

var catalogColumns = []string{"Ordem", "Marca", "Referencia", "Ano", "Valor"}

// CatalogRepo stores the raw valuation rows in Postgres
type CatalogRepo struct {
	pool *pgxpool.Pool
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

func (r *CatalogRepo) String() string {
	return "postgres:CATALOGO_VALORES"
}

// FetchRows returns every stored row in import order
func (r *CatalogRepo) FetchRows(ctx context.Context) ([]model.RawRow, error) {
	query := `
		SELECT "Marca", "Referencia", "Ano", "Valor"
		FROM "CATALOGO_VALORES"
		ORDER BY "Ordem", "ID"
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog rows: %w", err)
	}
	defer rows.Close()

	var result []model.RawRow
	for rows.Next() {
		var row model.RawRow
		if err := rows.Scan(&row.Brand, &row.Reference, &row.Year, &row.Value); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}

	return result, nil
}

// ReplaceRows swaps the stored catalog for rows in one transaction
func (r *CatalogRepo) ReplaceRows(ctx context.Context, rows []model.RawRow) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE "CATALOGO_VALORES"`); err != nil {
		return 0, fmt.Errorf("failed to truncate catalog: %w", err)
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"CATALOGO_VALORES"},
		catalogColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{i, row.Brand, row.Reference, row.Year, row.Value}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy catalog rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit catalog: %w", err)
	}
	return copied, nil
}
