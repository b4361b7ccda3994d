package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/config"
)

// Initialize opens the pool and warns when the schema is behind the embedded migrations.
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	var version int64
	var dirty bool
	err = db.pool.QueryRow(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		log.Warn("No migrations have been applied. Run the migrate command before the pipeline.")
		return db, nil
	}

	if dirty {
		db.Close()
		return nil, fmt.Errorf("database schema is dirty at version %d", version)
	}

	latest, err := LatestVersion()
	if err != nil {
		db.Close()
		return nil, err
	}
	if uint(version) < latest {
		log.WithFields(logrus.Fields{
			"schema_version": version,
			"latest_version": latest,
		}).Warn("Database schema is behind, run the migrate command")
	}

	return db, nil
}
