package mininggrp

import (
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/miner"
	"github.com/dinarlabs/ledger/business/core/report"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/validate"
)

// AppMineRequest is the optional body for a mine call. When a miner
// wallet is named it must be the caller's own wallet.
type AppMineRequest struct {
	MinerWalletID string `json:"miner_wallet_id" validate:"omitempty,len=64,hexadecimal"`
}

// Validate checks the data in the model is considered clean.
func (app AppMineRequest) Validate() error {
	if err := validate.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// AppMinedBlock reports the outcome of a successful mining round.
type AppMinedBlock struct {
	Index            int64  `json:"index"`
	Hash             string `json:"hash"`
	PreviousHash     string `json:"previous_hash"`
	MerkleRoot       string `json:"merkle_root"`
	Nonce            int64  `json:"nonce"`
	Timestamp        string `json:"timestamp"`
	TransactionCount int    `json:"transaction_count"`
	Attempts         int64  `json:"attempts"`
	ElapsedMS        int64  `json:"elapsed_ms"`
}

func toAppMinedBlock(mined miner.MinedBlock) AppMinedBlock {
	return AppMinedBlock{
		Index:            mined.Block.Index,
		Hash:             mined.Block.Hash,
		PreviousHash:     mined.Block.PreviousHash,
		MerkleRoot:       mined.Block.MerkleRoot,
		Nonce:            mined.Block.Nonce,
		Timestamp:        time.Unix(mined.Block.Timestamp, 0).UTC().Format(time.RFC3339),
		TransactionCount: mined.TxCount,
		Attempts:         mined.Attempts,
		ElapsedMS:        mined.Elapsed.Milliseconds(),
	}
}

// AppMiningStats is the chain production snapshot returned to clients.
type AppMiningStats struct {
	Height           int64   `json:"height"`
	Difficulty       int     `json:"difficulty"`
	CurrentReward    string  `json:"current_reward"`
	HalvingInterval  int64   `json:"halving_interval"`
	CirculatingCoins string  `json:"circulating_coins"`
	MaxSupply        string  `json:"max_supply"`
	Blocks           int64   `json:"blocks"`
	Transactions     int64   `json:"transactions"`
	PendingCount     int     `json:"pending_count"`
	LastBlockAt      string  `json:"last_block_at,omitempty"`
	AvgTxPerBlock    float64 `json:"avg_tx_per_block"`
}

func toAppMiningStats(stats report.MiningStats) AppMiningStats {
	app := AppMiningStats{
		Height:           stats.Height,
		Difficulty:       stats.Difficulty,
		CurrentReward:    money.Format(stats.CurrentReward),
		HalvingInterval:  stats.HalvingInterval,
		CirculatingCoins: money.Format(stats.CirculatingCoins),
		MaxSupply:        money.Format(stats.MaxSupply),
		Blocks:           stats.Blocks,
		Transactions:     stats.Transactions,
		PendingCount:     stats.Pending,
		AvgTxPerBlock:    stats.AvgTxPerBlock,
	}
	if !stats.LastBlockAt.IsZero() {
		app.LastBlockAt = stats.LastBlockAt.Format(time.RFC3339)
	}
	return app
}
