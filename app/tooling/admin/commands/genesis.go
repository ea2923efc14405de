package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/foundation/database"
	"go.uber.org/zap"
)

// Genesis writes block 0 and the monetary counters on a fresh database.
// Running it against a bootstrapped chain is a no-op.
func Genesis(ctx context.Context, log *zap.SugaredLogger, db *database.DB, g ledger.Genesis) error {
	created, err := ledger.Bootstrap(ctx, log, db, g, time.Now().UTC())
	if err != nil {
		return err
	}

	if !created {
		fmt.Println("chain already bootstrapped")
		return nil
	}

	fmt.Println("genesis block created")
	return nil
}
