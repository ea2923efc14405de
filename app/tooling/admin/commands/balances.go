package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/ardanlabs/conf/v3"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/shopspring/decimal"
)

// Balances prints the spendable balance per wallet. Amounts are summed
// in Go so both database engines produce the same figures. An optional
// wallet id argument restricts the listing to one wallet.
func Balances(ctx context.Context, args conf.Args, db *database.DB) error {
	onlyWallet := args.Num(1)

	const query = `
	SELECT wallet_id, amount
	FROM utxos
	WHERE is_spent = FALSE AND reserved_by IS NULL`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("selecting outputs: %w", err)
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			walletID string
			amtStr   string
		)
		if err := rows.Scan(&walletID, &amtStr); err != nil {
			return fmt.Errorf("scanning output: %w", err)
		}

		amount, err := money.Parse(amtStr)
		if err != nil {
			return fmt.Errorf("parsing amount: %w", err)
		}
		balances[walletID] = balances[walletID].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating outputs: %w", err)
	}

	wallets := make([]string, 0, len(balances))
	for walletID := range balances {
		if onlyWallet != "" && walletID != onlyWallet {
			continue
		}
		wallets = append(wallets, walletID)
	}
	sort.Strings(wallets)

	for _, walletID := range wallets {
		fmt.Printf("Wallet: %s  Balance: %s\n", walletID, money.Format(balances[walletID]))
	}

	return nil
}
