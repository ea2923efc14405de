// Package dbtest provides support for running tests against a throwaway
// in-memory database. Every call to New returns an isolated database with
// the full schema applied, so tests never share state.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/dinarlabs/ledger/business/sys/schema"
	"github.com/dinarlabs/ledger/foundation/database"
	"go.uber.org/zap"
)

// New opens a fresh in-memory database, applies the schema and registers
// cleanup with the test.
func New(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(zap.NewNop().Sugar(), "sqlitememory://")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := schema.Migrate(ctx, db); err != nil {
		db.Close()
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
