package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/logs"
	"github.com/dinarlabs/ledger/business/core/report"
	"github.com/dinarlabs/ledger/business/core/zakat"
	"github.com/shopspring/decimal"
)

// ChainInfo is the public snapshot of the chain's monetary state.
type ChainInfo struct {
	Height           int64
	Difficulty       int
	CurrentReward    decimal.Decimal
	HalvingInterval  int64
	CirculatingCoins decimal.Decimal
	MaxSupply        decimal.Decimal
	Pending          int
	LatestHash       string
}

// Info returns the chain's monetary state and the current tip.
func (c *Core) Info(ctx context.Context) (ChainInfo, error) {
	meta, err := c.chain.Meta(ctx)
	if err != nil {
		return ChainInfo{}, fmt.Errorf("reading chain meta: %w", err)
	}

	tip, err := c.chain.Tip(ctx)
	if err != nil {
		return ChainInfo{}, fmt.Errorf("reading tip: %w", err)
	}

	pending, err := c.mempool.Count(ctx)
	if err != nil {
		return ChainInfo{}, fmt.Errorf("counting pending: %w", err)
	}

	return ChainInfo{
		Height:           meta.Height,
		Difficulty:       meta.Difficulty,
		CurrentReward:    meta.CurrentReward,
		HalvingInterval:  meta.HalvingInterval,
		CirculatingCoins: meta.CirculatingCoins,
		MaxSupply:        chain.MaxSupply,
		Pending:          pending,
		LatestHash:       tip.Hash,
	}, nil
}

// Blocks returns a page of blocks, newest first.
func (c *Core) Blocks(ctx context.Context, page int, rowsPerPage int) ([]chain.Block, error) {
	return c.chain.QueryBlocks(ctx, page, rowsPerPage)
}

// BlockByRef resolves a block reference: a 64 character hex string is
// treated as a block hash, anything else must parse as a decimal height.
func (c *Core) BlockByRef(ctx context.Context, ref string) (chain.Block, error) {
	if len(ref) == 64 {
		return c.chain.QueryBlockByHash(ctx, ref)
	}

	index, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return chain.Block{}, chain.ErrNotFound
	}

	return c.chain.QueryBlockByIndex(ctx, index)
}

// BlockTxs returns the transactions settled in a block, coinbase first.
func (c *Core) BlockTxs(ctx context.Context, blockIndex int64) ([]chain.Tx, error) {
	if _, err := c.chain.QueryBlockByIndex(ctx, blockIndex); err != nil {
		return nil, err
	}
	return c.chain.QueryTxsByBlock(ctx, blockIndex)
}

// MiningStats returns chain production figures for operators.
func (c *Core) MiningStats(ctx context.Context) (report.MiningStats, error) {
	return c.report.Mining(ctx)
}

// Analytics returns service wide activity figures over the trailing
// window of days.
func (c *Core) Analytics(ctx context.Context, days int) (report.Analytics, error) {
	return c.report.Analytics(ctx, days)
}

// MonthlyStatement builds the wallet's settled activity summary for the
// given month.
func (c *Core) MonthlyStatement(ctx context.Context, walletID string, year int, month time.Month) (report.Statement, error) {
	if _, err := c.wallet.QueryByID(ctx, walletID); err != nil {
		return report.Statement{}, err
	}
	return c.report.Monthly(ctx, walletID, year, month)
}

// SystemLogs returns a page of system audit entries, newest first.
func (c *Core) SystemLogs(ctx context.Context, logType string, page int, rowsPerPage int) ([]logs.SystemLog, error) {
	return c.logs.QuerySystem(ctx, logType, page, rowsPerPage)
}

// TransactionLogs returns a page of wallet audit entries, newest first.
func (c *Core) TransactionLogs(ctx context.Context, walletID string, page int, rowsPerPage int) ([]logs.TranLog, error) {
	return c.logs.QueryTransactions(ctx, walletID, page, rowsPerPage)
}

// ZakatRecords returns a page of deductions, newest first.
func (c *Core) ZakatRecords(ctx context.Context, walletID string, page int, rowsPerPage int) ([]zakat.Record, error) {
	return c.zakat.Records(ctx, walletID, page, rowsPerPage)
}

// ZakatPoolBalance returns the spendable balance held by the pool.
func (c *Core) ZakatPoolBalance(ctx context.Context) (decimal.Decimal, error) {
	return c.zakat.PoolBalance(ctx)
}
