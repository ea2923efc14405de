package mempool_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/business/sys/dbtest"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	walletA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	walletC = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
)

func pendingTx(n int, sender string, receiver string, ts time.Time) mempool.Pending {
	return mempool.Pending{
		ID:         fmt.Sprintf("pending-%d", n),
		TxHash:     fmt.Sprintf("hash-%d", n),
		SenderID:   sender,
		ReceiverID: receiver,
		Amount:     money.MustParse("12.5"),
		Fee:        money.MustParse("0.1"),
		Note:       "test transfer",
		Signature:  "sig",
		Timestamp:  ts.Unix(),
		CreatedAt:  ts,
	}
}

func TestMempool(t *testing.T) {
	db := dbtest.New(t)
	mem := mempool.New(zap.NewNop().Sugar(), db)
	ctx := context.Background()
	base := time.Now().UTC()

	t.Run("insert and query", func(t *testing.T) {
		p := pendingTx(1, walletA, walletB, base)
		require.NoError(t, mem.Insert(ctx, db, p))

		ok, err := mem.Contains(ctx, p.TxHash)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := mem.QueryByHash(ctx, p.TxHash)
		require.NoError(t, err)
		require.Equal(t, p.ID, got.ID)
		require.Equal(t, p.SenderID, got.SenderID)
		require.Equal(t, p.ReceiverID, got.ReceiverID)
		require.Equal(t, p.Note, got.Note)
		require.Equal(t, p.Timestamp, got.Timestamp)
		require.True(t, got.Amount.Equal(p.Amount), "amount: %s", got.Amount)
		require.True(t, got.Fee.Equal(p.Fee), "fee: %s", got.Fee)
	})

	t.Run("duplicate hash rejected", func(t *testing.T) {
		dup := pendingTx(1, walletA, walletB, base)
		dup.ID = "pending-1-retry"
		require.ErrorIs(t, mem.Insert(ctx, db, dup), mempool.ErrDuplicateTx)
	})

	t.Run("unknown hash", func(t *testing.T) {
		_, err := mem.QueryByHash(ctx, "no such hash")
		require.ErrorIs(t, err, mempool.ErrNotFound)

		ok, err := mem.Contains(ctx, "no such hash")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("batch is oldest first", func(t *testing.T) {
		// Insert out of order; the batch must come back in timestamp order.
		require.NoError(t, mem.Insert(ctx, db, pendingTx(3, walletB, walletC, base.Add(2*time.Second))))
		require.NoError(t, mem.Insert(ctx, db, pendingTx(2, walletA, walletC, base.Add(1*time.Second))))

		batch, err := mem.Batch(ctx, 10)
		require.NoError(t, err)
		require.Len(t, batch, 3)
		require.Equal(t, "hash-1", batch[0].TxHash)
		require.Equal(t, "hash-2", batch[1].TxHash)
		require.Equal(t, "hash-3", batch[2].TxHash)

		limited, err := mem.Batch(ctx, 2)
		require.NoError(t, err)
		require.Len(t, limited, 2)
		require.Equal(t, "hash-1", limited[0].TxHash)

		count, err := mem.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 3, count)
	})

	t.Run("query by wallet", func(t *testing.T) {
		forA, err := mem.QueryByWallet(ctx, walletA)
		require.NoError(t, err)
		require.Len(t, forA, 2) // sends hash-1 and hash-2

		forC, err := mem.QueryByWallet(ctx, walletC)
		require.NoError(t, err)
		require.Len(t, forC, 2) // receives hash-2 and hash-3
	})

	t.Run("expired cutoff", func(t *testing.T) {
		expired, err := mem.Expired(ctx, base.Add(2*time.Second))
		require.NoError(t, err)
		require.Len(t, expired, 2)
		require.Equal(t, "hash-1", expired[0].TxHash)
		require.Equal(t, "hash-2", expired[1].TxHash)

		none, err := mem.Expired(ctx, base.Add(-time.Hour))
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, mem.Remove(ctx, db, "pending-1"))

		ok, err := mem.Contains(ctx, "hash-1")
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, mem.RemoveBatch(ctx, db, []string{"pending-2", "pending-3"}))

		count, err := mem.Count(ctx)
		require.NoError(t, err)
		require.Zero(t, count)

		require.NoError(t, mem.RemoveBatch(ctx, db, nil))
	})
}
