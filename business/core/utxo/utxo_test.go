package utxo_test

import (
	"context"
	"testing"
	"time"

	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/sys/dbtest"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	walletA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// insertPending parks a pending row so reservations have something to
// reference, the same way admission does before it reserves.
func insertPending(t *testing.T, db *database.DB, mem *mempool.Core, id string, now time.Time) {
	t.Helper()

	p := mempool.Pending{
		ID:         id,
		TxHash:     "tx-" + id,
		SenderID:   walletA,
		ReceiverID: walletB,
		Amount:     money.MustParse("10"),
		Fee:        money.MustParse("0.1"),
		Signature:  "sig",
		Timestamp:  now.Unix(),
		CreatedAt:  now,
	}
	require.NoError(t, mem.Insert(context.Background(), db, p))
}

func TestUTXOLifecycle(t *testing.T) {
	db := dbtest.New(t)
	log := zap.NewNop().Sugar()
	ctx := context.Background()
	now := time.Now().UTC()

	utx := utxo.New(log, db)
	mem := mempool.New(log, db)

	t.Run("create and sum", func(t *testing.T) {
		for i, amount := range []string{"10", "20", "30"} {
			nu := utxo.NewUTXO{
				WalletID:    walletA,
				Amount:      money.MustParse(amount),
				TxHash:      "seed",
				OutputIndex: i,
			}
			require.NoError(t, utx.Create(ctx, db, nu, now))
		}

		sum, err := utx.SumAvailable(ctx, walletA)
		require.NoError(t, err)
		require.True(t, sum.Equal(money.MustParse("60")), "available sum: %s", sum)

		dup := utxo.NewUTXO{WalletID: walletA, Amount: money.MustParse("1"), TxHash: "seed", OutputIndex: 0}
		err = utx.Create(ctx, db, dup, now)
		require.ErrorIs(t, err, utxo.ErrConflict)
	})

	t.Run("reserve largest first", func(t *testing.T) {
		insertPending(t, db, mem, "p1", now)

		picked, err := utx.Reserve(ctx, db, walletA, money.MustParse("35"), "p1")
		require.NoError(t, err)
		require.Len(t, picked, 2)
		require.True(t, picked[0].Amount.Equal(money.MustParse("30")))
		require.True(t, picked[1].Amount.Equal(money.MustParse("20")))

		for _, u := range picked {
			require.Equal(t, utxo.StatusReserved, u.Status())
		}

		sum, err := utx.SumAvailable(ctx, walletA)
		require.NoError(t, err)
		require.True(t, sum.Equal(money.MustParse("10")), "available sum: %s", sum)

		unspent, err := utx.SumUnspent(ctx, db, walletA)
		require.NoError(t, err)
		require.True(t, unspent.Equal(money.MustParse("60")), "unspent sum: %s", unspent)

		reserved, err := utx.QueryReserved(ctx, db, "p1")
		require.NoError(t, err)
		require.Len(t, reserved, 2)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		insertPending(t, db, mem, "p2", now)

		_, err := utx.Reserve(ctx, db, walletA, money.MustParse("15"), "p2")
		require.ErrorIs(t, err, utxo.ErrInsufficientFunds)
	})

	t.Run("release returns outputs", func(t *testing.T) {
		n, err := utx.Release(ctx, db, "p1")
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		sum, err := utx.SumAvailable(ctx, walletA)
		require.NoError(t, err)
		require.True(t, sum.Equal(money.MustParse("60")), "available sum: %s", sum)

		reserved, err := utx.QueryReserved(ctx, db, "p1")
		require.NoError(t, err)
		require.Empty(t, reserved)
	})

	t.Run("spend consumes outputs", func(t *testing.T) {
		picked, err := utx.Reserve(ctx, db, walletA, money.MustParse("55"), "p1")
		require.NoError(t, err)
		require.Len(t, picked, 3)

		n, err := utx.Spend(ctx, db, "p1", "spent-in", now)
		require.NoError(t, err)
		require.EqualValues(t, 3, n)

		sum, err := utx.SumAvailable(ctx, walletA)
		require.NoError(t, err)
		require.True(t, sum.IsZero(), "available sum: %s", sum)

		unspent, err := utx.SumUnspent(ctx, db, walletA)
		require.NoError(t, err)
		require.True(t, unspent.IsZero(), "unspent sum: %s", unspent)

		held, err := utx.QueryByWallet(ctx, walletA)
		require.NoError(t, err)
		require.Empty(t, held)
	})
}

func TestUTXOQueryByWallet(t *testing.T) {
	db := dbtest.New(t)
	log := zap.NewNop().Sugar()
	ctx := context.Background()
	now := time.Now().UTC()

	utx := utxo.New(log, db)
	mem := mempool.New(log, db)

	require.NoError(t, utx.Create(ctx, db, utxo.NewUTXO{WalletID: walletA, Amount: money.MustParse("5"), TxHash: "t1", OutputIndex: 0}, now))
	require.NoError(t, utx.Create(ctx, db, utxo.NewUTXO{WalletID: walletA, Amount: money.MustParse("7"), TxHash: "t2", OutputIndex: 0}, now))
	require.NoError(t, utx.Create(ctx, db, utxo.NewUTXO{WalletID: walletB, Amount: money.MustParse("9"), TxHash: "t3", OutputIndex: 0}, now))

	insertPending(t, db, mem, "hold", now)
	_, err := utx.Reserve(ctx, db, walletA, money.MustParse("7"), "hold")
	require.NoError(t, err)

	// Reserved outputs still belong to the wallet until they are spent.
	held, err := utx.QueryByWallet(ctx, walletA)
	require.NoError(t, err)
	require.Len(t, held, 2)

	statuses := map[string]int{}
	for _, u := range held {
		statuses[u.Status()]++
	}
	require.Equal(t, 1, statuses[utxo.StatusAvailable])
	require.Equal(t, 1, statuses[utxo.StatusReserved])

	other, err := utx.QueryByWallet(ctx, walletB)
	require.NoError(t, err)
	require.Len(t, other, 1)
	require.Equal(t, utxo.StatusAvailable, other[0].Status())
}
