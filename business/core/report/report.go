// Package report builds read-only summaries over the settled chain: node
// wide mining statistics and per wallet monthly statements. Monetary sums
// are folded in Go so both database engines produce identical figures.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MiningStats is a snapshot of chain production figures.
type MiningStats struct {
	Height           int64
	Difficulty       int
	CurrentReward    decimal.Decimal
	HalvingInterval  int64
	CirculatingCoins decimal.Decimal
	MaxSupply        decimal.Decimal
	Blocks           int64
	Transactions     int64
	Pending          int
	LastBlockAt      time.Time
	AvgTxPerBlock    float64
}

// DayVolume is one day of settled transfer activity.
type DayVolume struct {
	Day    time.Time
	Count  int
	Amount decimal.Decimal
	Fees   decimal.Decimal
}

// Analytics is service wide activity over a trailing window of days.
type Analytics struct {
	From          time.Time
	To            time.Time
	Volume        []DayVolume
	ActiveWallets int
	TotalWallets  int64
}

// Statement is a per wallet summary of settled activity in one month.
type Statement struct {
	WalletID  string
	Year      int
	Month     time.Month
	Sent      decimal.Decimal
	Received  decimal.Decimal
	Fees      decimal.Decimal
	Zakat     decimal.Decimal
	Mined     decimal.Decimal
	TxCount   int
	StartTime time.Time
	EndTime   time.Time
}

// Core manages the set of APIs for reporting.
type Core struct {
	log     *zap.SugaredLogger
	db      *database.DB
	chain   *chain.Core
	mempool *mempool.Core
}

// New constructs a core for report api access.
func New(log *zap.SugaredLogger, db *database.DB, chn *chain.Core, mem *mempool.Core) *Core {
	return &Core{
		log:     log,
		db:      db,
		chain:   chn,
		mempool: mem,
	}
}

// Mining returns chain production figures for operators.
func (c *Core) Mining(ctx context.Context) (MiningStats, error) {
	meta, err := c.chain.Meta(ctx)
	if err != nil {
		return MiningStats{}, fmt.Errorf("reading chain meta: %w", err)
	}

	blocks, err := c.chain.BlockCount(ctx)
	if err != nil {
		return MiningStats{}, fmt.Errorf("counting blocks: %w", err)
	}

	txs, err := c.chain.TxCount(ctx)
	if err != nil {
		return MiningStats{}, fmt.Errorf("counting transactions: %w", err)
	}

	pending, err := c.mempool.Count(ctx)
	if err != nil {
		return MiningStats{}, fmt.Errorf("counting pending: %w", err)
	}

	stats := MiningStats{
		Height:           meta.Height,
		Difficulty:       meta.Difficulty,
		CurrentReward:    meta.CurrentReward,
		HalvingInterval:  meta.HalvingInterval,
		CirculatingCoins: meta.CirculatingCoins,
		MaxSupply:        chain.MaxSupply,
		Blocks:           blocks,
		Transactions:     txs,
		Pending:          pending,
	}

	tip, err := c.chain.Tip(ctx)
	switch {
	case err == nil:
		stats.LastBlockAt = time.Unix(tip.Timestamp, 0).UTC()
	case errors.Is(err, chain.ErrNotFound):
		// Chain not bootstrapped yet; leave the zero time.
	default:
		return MiningStats{}, fmt.Errorf("reading tip: %w", err)
	}

	// The genesis block carries no transactions, so exclude it from the
	// production average.
	if blocks > 1 {
		stats.AvgTxPerBlock = float64(txs) / float64(blocks-1)
	}

	return stats, nil
}

// Analytics window bounds. One request never scans an unbounded range.
const (
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 90
)

// Analytics builds service wide activity figures over the trailing
// window of days: settled volume per day and the set of wallets that
// moved funds. Coinbase rows mark the miner active but are excluded
// from volume, which tracks user initiated transfers.
func (c *Core) Analytics(ctx context.Context, days int) (Analytics, error) {
	if days < 1 {
		days = defaultAnalyticsDays
	}
	if days > maxAnalyticsDays {
		days = maxAnalyticsDays
	}

	to := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -days)

	const query = `
	SELECT sender_wallet_id, receiver_wallet_id, amount, fee, transaction_type, timestamp
	FROM transactions
	WHERE timestamp >= $1 AND timestamp < $2
	ORDER BY timestamp ASC, id ASC`

	rows, err := c.db.QueryContext(ctx, query, from.Unix(), to.Unix())
	if err != nil {
		return Analytics{}, fmt.Errorf("selecting analytics rows: %w", err)
	}
	defer rows.Close()

	byDay := make(map[time.Time]*DayVolume, days)
	active := make(map[string]struct{})

	for rows.Next() {
		var (
			sender   string
			receiver string
			amtStr   string
			feeStr   string
			txType   string
			ts       int64
		)
		if err := rows.Scan(&sender, &receiver, &amtStr, &feeStr, &txType, &ts); err != nil {
			return Analytics{}, fmt.Errorf("scanning analytics row: %w", err)
		}

		if sender != "" {
			active[sender] = struct{}{}
		}
		active[receiver] = struct{}{}

		if txType == chain.TypeCoinbase {
			continue
		}

		amount, err := money.Parse(amtStr)
		if err != nil {
			return Analytics{}, fmt.Errorf("parsing amount: %w", err)
		}
		fee, err := money.Parse(feeStr)
		if err != nil {
			return Analytics{}, fmt.Errorf("parsing fee: %w", err)
		}

		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		dv, ok := byDay[day]
		if !ok {
			dv = &DayVolume{Day: day, Amount: decimal.Zero, Fees: decimal.Zero}
			byDay[day] = dv
		}
		dv.Count++
		dv.Amount = dv.Amount.Add(amount)
		dv.Fees = dv.Fees.Add(fee)
	}
	if err := rows.Err(); err != nil {
		return Analytics{}, fmt.Errorf("iterating analytics rows: %w", err)
	}

	an := Analytics{
		From:          from,
		To:            to,
		Volume:        make([]DayVolume, 0, days),
		ActiveWallets: len(active),
	}

	// Emit every day of the window so gaps show as zeros.
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		if dv, ok := byDay[day]; ok {
			an.Volume = append(an.Volume, *dv)
			continue
		}
		an.Volume = append(an.Volume, DayVolume{Day: day, Amount: decimal.Zero, Fees: decimal.Zero})
	}

	const countQuery = `SELECT COUNT(*) FROM wallets`
	if err := c.db.QueryRowContext(ctx, countQuery).Scan(&an.TotalWallets); err != nil {
		return Analytics{}, fmt.Errorf("counting wallets: %w", err)
	}

	return an, nil
}

// Monthly builds the wallet's statement for the given month. The window
// is [first of month, first of next month) in UTC against the signed
// transaction timestamps.
func (c *Core) Monthly(ctx context.Context, walletID string, year int, month time.Month) (Statement, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	const query = `
	SELECT sender_wallet_id, receiver_wallet_id, amount, fee, transaction_type
	FROM transactions
	WHERE (sender_wallet_id = $1 OR receiver_wallet_id = $1)
	  AND timestamp >= $2 AND timestamp < $3
	ORDER BY timestamp ASC, id ASC`

	rows, err := c.db.QueryContext(ctx, query, walletID, start.Unix(), end.Unix())
	if err != nil {
		return Statement{}, fmt.Errorf("selecting statement rows: %w", err)
	}
	defer rows.Close()

	st := Statement{
		WalletID:  walletID,
		Year:      year,
		Month:     month,
		Sent:      decimal.Zero,
		Received:  decimal.Zero,
		Fees:      decimal.Zero,
		Zakat:     decimal.Zero,
		Mined:     decimal.Zero,
		StartTime: start,
		EndTime:   end,
	}

	for rows.Next() {
		var (
			sender   string
			receiver string
			amtStr   string
			feeStr   string
			txType   string
		)
		if err := rows.Scan(&sender, &receiver, &amtStr, &feeStr, &txType); err != nil {
			return Statement{}, fmt.Errorf("scanning statement row: %w", err)
		}

		amount, err := money.Parse(amtStr)
		if err != nil {
			return Statement{}, fmt.Errorf("parsing amount: %w", err)
		}
		fee, err := money.Parse(feeStr)
		if err != nil {
			return Statement{}, fmt.Errorf("parsing fee: %w", err)
		}

		st.TxCount++

		if sender == walletID {
			st.Sent = st.Sent.Add(amount)
			st.Fees = st.Fees.Add(fee)
			if txType == chain.TypeZakat {
				st.Zakat = st.Zakat.Add(amount)
			}
		}

		if receiver == walletID {
			if txType == chain.TypeCoinbase {
				st.Mined = st.Mined.Add(amount)
			} else {
				st.Received = st.Received.Add(amount)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return Statement{}, fmt.Errorf("iterating statement rows: %w", err)
	}

	return st, nil
}
