package commands

import (
	"context"
	"fmt"

	"github.com/ardanlabs/conf/v3"
	"github.com/dinarlabs/ledger/business/sys/schema"
	"github.com/dinarlabs/ledger/foundation/database"
)

// Schema ensures the database tables exist. With the drop argument it
// removes every table the ledger owns instead.
func Schema(ctx context.Context, args conf.Args, db *database.DB) error {
	if args.Num(1) == "drop" {
		if err := schema.Drop(ctx, db); err != nil {
			return fmt.Errorf("dropping schema: %w", err)
		}
		fmt.Println("schema dropped")
		return nil
	}

	if err := schema.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	fmt.Println("schema ensured")
	return nil
}
