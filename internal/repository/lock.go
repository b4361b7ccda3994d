package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/models"
)

// runLockKey is the advisory lock id shared by every pipeline process.
const runLockKey int64 = 0x46315f77696e // "F1_win"

// AdvisoryLocker serialises runs with a session-level Postgres advisory lock
type AdvisoryLocker struct {
	db *database.DB
}

// NewAdvisoryLocker creates a new advisory locker
func NewAdvisoryLocker(db *database.DB) Locker {
	return &AdvisoryLocker{db: db}
}

// WithRunLock runs fn while holding the run lock on a pinned connection
func (l *AdvisoryLocker) WithRunLock(ctx context.Context, fn func(context.Context) error) error {
	return l.db.AcquireSession(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		var acquired bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, runLockKey).Scan(&acquired); err != nil {
			return fmt.Errorf("failed to take run lock: %w", err)
		}
		if !acquired {
			return models.ErrRunInProgress
		}
		defer func() {
			_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, runLockKey)
		}()

		return fn(ctx)
	})
}
