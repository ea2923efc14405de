package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/logs"
	"github.com/dinarlabs/ledger/business/core/miner"
	"github.com/dinarlabs/ledger/business/core/zakat"
	"github.com/dinarlabs/ledger/foundation/events"
	"github.com/dinarlabs/ledger/foundation/money"
)

// ErrNotAcceptingWork is returned once an invariant violation has latched
// the ledger unhealthy.
var ErrNotAcceptingWork = errors.New("ledger is not accepting work")

// Mine produces the next block, crediting the coinbase to the miner's
// wallet. An invariant violation during settlement latches the ledger
// unhealthy and the error is surfaced to the caller.
func (c *Core) Mine(ctx context.Context, minerWallet string) (miner.MinedBlock, error) {
	if !c.Healthy() {
		return miner.MinedBlock{}, ErrNotAcceptingWork
	}

	if _, err := c.wallet.QueryByID(ctx, minerWallet); err != nil {
		return miner.MinedBlock{}, err
	}

	mined, err := c.miner.Mine(ctx, minerWallet)
	if err != nil {
		if errors.Is(err, miner.ErrInvariant) {
			c.latchUnhealthy(err.Error())
		}
		c.logs.RecordSystem(ctx, logs.SystemLog{
			LogType: logs.TypeMining,
			Message: fmt.Sprintf("mining failed for wallet %s: %v", minerWallet, err),
		})
		return miner.MinedBlock{}, err
	}

	c.logs.RecordSystem(ctx, logs.SystemLog{
		LogType: logs.TypeMining,
		Message: fmt.Sprintf("block %d mined by wallet %s with %d txs", mined.Block.Index, minerWallet, mined.TxCount),
	})

	// Confirmation rows land in the audit trail next to their admission
	// entries. The coinbase is logged against the miner who earned it.
	if txs, err := c.chain.QueryTxsByBlock(ctx, mined.Block.Index); err == nil {
		for _, tx := range txs {
			action, walletID := "CONFIRM", tx.SenderID
			if tx.TxType == chain.TypeCoinbase {
				action, walletID = "MINE", tx.ReceiverID
			}
			c.logs.RecordTransaction(ctx, logs.TranLog{
				WalletID: walletID,
				Action:   action,
				TxHash:   tx.TxHash,
				Status:   logs.StatusSuccess,
			})
		}
	}

	c.send(events.KindBlockMined, "block %d mined: txs[%d] nonce[%d] elapsed[%v]",
		mined.Block.Index, mined.TxCount, mined.Block.Nonce, mined.Elapsed)

	return mined, nil
}

// SweepExpired releases and drops every pending transaction older than
// the TTL. Each transaction is swept in its own database transaction so
// one failure cannot poison the rest.
func (c *Core) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := c.mempool.Expired(ctx, now.Add(-c.pendingTTL))
	if err != nil {
		return 0, fmt.Errorf("selecting expired: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	swept := 0
	for _, p := range expired {
		if err := c.sweepOne(ctx, p.ID); err != nil {
			c.log.Errorw("sweep", "status", "failed", "pending", p.ID, "txhash", p.TxHash, "ERROR", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		c.log.Infow("sweep", "status", "complete", "expired", len(expired), "swept", swept)
		c.send(events.KindSweep, "expired %d pending transactions", swept)
	}

	return swept, nil
}

func (c *Core) sweepOne(ctx context.Context, pendingID string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sweep tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := c.utxo.Release(ctx, tx, pendingID); err != nil {
		return fmt.Errorf("releasing outputs: %w", err)
	}

	if err := c.mempool.Remove(ctx, tx, pendingID); err != nil {
		return fmt.Errorf("removing pending: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sweep tx: %w", err)
	}

	return nil
}

// RunZakat executes one deduction cycle over all due wallets.
func (c *Core) RunZakat(ctx context.Context) (zakat.Summary, error) {
	if !c.Healthy() {
		return zakat.Summary{}, ErrNotAcceptingWork
	}

	sum, err := c.zakat.RunOnce(ctx, time.Now().UTC())
	if err != nil {
		return zakat.Summary{}, err
	}

	if sum.Deducted > 0 {
		c.send(events.KindZakat, "zakat cycle: %d wallets deducted, total %s",
			sum.Deducted, money.Format(sum.Total))
	}

	return sum, nil
}

// Validate walks the whole chain and re-derives every block hash, link
// and merkle root.
func (c *Core) Validate(ctx context.Context) (chain.Report, error) {
	return c.chain.Validate(ctx)
}
