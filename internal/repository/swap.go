package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/f1-winner/internal/database"
)

// swapTable rebuilds table from rows without an empty intermediate state:
// rows are copied into a staging clone, then the clone replaces the live table
// by rename in the same transaction. A failure rolls back and leaves the live
// table as it was.
func swapTable(ctx context.Context, db *database.DB, table string, columns []string, rows [][]any) error {
	live := pgx.Identifier{table}.Sanitize()
	stagingName := table + "_staging"
	staging := pgx.Identifier{stagingName}.Sanitize()

	return db.WithTransaction(ctx, func(txCtx context.Context) error {
		q := db.Conn(txCtx)

		if _, err := q.Exec(txCtx, fmt.Sprintf("DROP TABLE IF EXISTS %s", staging)); err != nil {
			return fmt.Errorf("failed to drop stale staging table: %w", err)
		}
		if _, err := q.Exec(txCtx, fmt.Sprintf("CREATE TABLE %s (LIKE %s INCLUDING ALL)", staging, live)); err != nil {
			return fmt.Errorf("failed to create staging table for %s: %w", table, err)
		}

		if len(rows) > 0 {
			copied, err := q.CopyFrom(txCtx, pgx.Identifier{stagingName}, columns, pgx.CopyFromRows(rows))
			if err != nil {
				return fmt.Errorf("failed to copy rows into %s: %w", stagingName, err)
			}
			if copied != int64(len(rows)) {
				return fmt.Errorf("copied %d rows into %s, expected %d", copied, stagingName, len(rows))
			}
		}

		if _, err := q.Exec(txCtx, fmt.Sprintf("DROP TABLE %s", live)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
		if _, err := q.Exec(txCtx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", staging, live)); err != nil {
			return fmt.Errorf("failed to promote staging table for %s: %w", table, err)
		}
		return nil
	})
}
