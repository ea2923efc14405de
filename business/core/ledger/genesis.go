package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/signature"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Genesis describes the monetary parameters written on first start.
type Genesis struct {
	InitialReward   decimal.Decimal
	HalvingInterval int64
	Difficulty      int
}

// Bootstrap creates the genesis block and the monetary counters on a
// fresh database. A chain that already has a tip is left untouched. The
// return reports whether a genesis block was created by this call. The
// genesis block carries no proof-of-work: its nonce is zero and only
// its hash and zero previous hash anchor the chain.
func Bootstrap(ctx context.Context, log *zap.SugaredLogger, db *database.DB, g Genesis, now time.Time) (bool, error) {
	chn := chain.New(log, db)

	_, err := chn.Tip(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, chain.ErrNotFound) {
		return false, fmt.Errorf("reading tip: %w", err)
	}

	genesis := chain.Block{
		Index:        0,
		Timestamp:    now.Unix(),
		PreviousHash: signature.ZeroHash,
		Nonce:        0,
		MerkleRoot:   signature.ZeroHash,
	}
	genesis.Hash = signature.BlockHash(genesis.Index, genesis.Timestamp, genesis.PreviousHash, genesis.MerkleRoot, genesis.Nonce)

	meta := chain.Meta{
		Height:           0,
		CirculatingCoins: money.Zero,
		CurrentReward:    g.InitialReward,
		HalvingInterval:  g.HalvingInterval,
		Difficulty:       g.Difficulty,
		UpdatedAt:        now,
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning genesis tx: %w", err)
	}
	defer tx.Rollback()

	if err := chn.InsertBlock(ctx, tx, genesis); err != nil {
		return false, fmt.Errorf("inserting genesis block: %w", err)
	}

	if err := chn.InsertMeta(ctx, tx, meta); err != nil {
		return false, fmt.Errorf("inserting chain meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing genesis tx: %w", err)
	}

	log.Infow("ledger", "status", "genesis created", "hash", genesis.Hash,
		"reward", money.Format(g.InitialReward), "difficulty", g.Difficulty,
		"halving", g.HalvingInterval)

	return true, nil
}
