package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// TestDSNEnv names the variable that points integration tests at a disposable database.
const TestDSNEnv = "F1_WINNER_TEST_DSN"

// SetupTestDB migrates and opens the database named by F1_WINNER_TEST_DSN,
// skipping the test when it is unset. The pool is closed on cleanup.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv(TestDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping database test", TestDSNEnv)
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	if _, err := Migrate(dsn, -1, log); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := NewDBFromDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	t.Cleanup(db.Close)

	return db
}
