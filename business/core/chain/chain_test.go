package chain_test

import (
	"context"
	"testing"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/sys/dbtest"
	"github.com/dinarlabs/ledger/foundation/merkle"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/signature"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	walletA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	walletB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// solve searches for a nonce meeting the difficulty, the same search the
// miner runs.
func solve(t *testing.T, index int64, ts int64, prev string, root string, difficulty int) (int64, string) {
	t.Helper()

	for nonce := int64(0); ; nonce++ {
		h := signature.BlockHash(index, ts, prev, root, nonce)
		if signature.IsHashSolved(difficulty, h) {
			return nonce, h
		}
	}
}

func genesisBlock(ts int64) chain.Block {
	b := chain.Block{
		Index:        0,
		Timestamp:    ts,
		PreviousHash: signature.ZeroHash,
		Nonce:        0,
		MerkleRoot:   signature.ZeroHash,
	}
	b.Hash = signature.BlockHash(b.Index, b.Timestamp, b.PreviousHash, b.MerkleRoot, b.Nonce)
	return b
}

func TestChainStore(t *testing.T) {
	db := dbtest.New(t)
	chn := chain.New(zap.NewNop().Sugar(), db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("empty chain", func(t *testing.T) {
		_, err := chn.Tip(ctx)
		require.ErrorIs(t, err, chain.ErrNotFound)

		_, err = chn.Meta(ctx)
		require.ErrorIs(t, err, chain.ErrNotFound)
	})

	genesis := genesisBlock(now.Unix())

	t.Run("insert blocks", func(t *testing.T) {
		require.NoError(t, chn.InsertBlock(ctx, db, genesis))

		tip, err := chn.Tip(ctx)
		require.NoError(t, err)
		require.Equal(t, genesis, tip)

		b1 := chain.Block{
			Index:        1,
			Timestamp:    now.Unix() + 1,
			PreviousHash: genesis.Hash,
			MerkleRoot:   signature.Hash("b1 txs"),
			Nonce:        7,
		}
		b1.Hash = signature.BlockHash(b1.Index, b1.Timestamp, b1.PreviousHash, b1.MerkleRoot, b1.Nonce)
		require.NoError(t, chn.InsertBlock(ctx, db, b1))

		tip, err = chn.Tip(ctx)
		require.NoError(t, err)
		require.Equal(t, b1, tip)

		// Losing the race for the next index surfaces as a stale tip.
		require.ErrorIs(t, chn.InsertBlock(ctx, db, b1), chain.ErrStaleTip)

		count, err := chn.BlockCount(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, count)
	})

	t.Run("block lookups", func(t *testing.T) {
		got, err := chn.QueryBlockByIndex(ctx, 0)
		require.NoError(t, err)
		require.Equal(t, genesis, got)

		got, err = chn.QueryBlockByHash(ctx, genesis.Hash)
		require.NoError(t, err)
		require.Equal(t, genesis, got)

		_, err = chn.QueryBlockByIndex(ctx, 99)
		require.ErrorIs(t, err, chain.ErrNotFound)

		_, err = chn.QueryBlockByHash(ctx, signature.Hash("no such block"))
		require.ErrorIs(t, err, chain.ErrNotFound)

		page, err := chn.QueryBlocks(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, page, 2)
		require.EqualValues(t, 1, page[0].Index) // newest first

		page, err = chn.QueryBlocks(ctx, 2, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.EqualValues(t, 0, page[0].Index)
	})

	t.Run("insert transactions", func(t *testing.T) {
		coinbase := chain.Tx{
			TxHash:     signature.Hash("b1 coinbase"),
			SenderID:   "",
			ReceiverID: walletA,
			Amount:     money.MustParse("500.1"),
			Fee:        money.Zero,
			TxType:     chain.TypeCoinbase,
			BlockIndex: 1,
			Timestamp:  now.Unix() + 1,
			CreatedAt:  now,
		}
		transfer := chain.Tx{
			TxHash:     signature.Hash("b1 transfer"),
			SenderID:   walletA,
			ReceiverID: walletB,
			Amount:     money.MustParse("25.5"),
			Fee:        money.MustParse("0.1"),
			Note:       "rent",
			Signature:  "sig",
			TxType:     chain.TypeTransfer,
			BlockIndex: 1,
			Timestamp:  now.Unix(),
			CreatedAt:  now,
		}

		require.NoError(t, chn.InsertTx(ctx, db, coinbase))
		require.NoError(t, chn.InsertTx(ctx, db, transfer))

		got, err := chn.QueryTxByHash(ctx, transfer.TxHash)
		require.NoError(t, err)
		require.Equal(t, walletA, got.SenderID)
		require.Equal(t, walletB, got.ReceiverID)
		require.Equal(t, "rent", got.Note)
		require.Equal(t, chain.TypeTransfer, got.TxType)
		require.EqualValues(t, 1, got.BlockIndex)
		require.True(t, got.Amount.Equal(money.MustParse("25.5")), "amount: %s", got.Amount)
		require.True(t, got.Fee.Equal(money.MustParse("0.1")), "fee: %s", got.Fee)

		_, err = chn.QueryTxByHash(ctx, signature.Hash("no such tx"))
		require.ErrorIs(t, err, chain.ErrNotFound)

		inBlock, err := chn.QueryTxsByBlock(ctx, 1)
		require.NoError(t, err)
		require.Len(t, inBlock, 2)
		require.Equal(t, chain.TypeCoinbase, inBlock[0].TxType) // commit order

		ok, err := chn.ContainsTxHash(ctx, coinbase.TxHash)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = chn.ContainsTxHash(ctx, signature.Hash("no such tx"))
		require.NoError(t, err)
		require.False(t, ok)

		count, err := chn.TxCount(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, count)

		// The coinbase timestamp is newer, so it leads the wallet view.
		forA, err := chn.QueryTxsByWallet(ctx, walletA, 1, 10)
		require.NoError(t, err)
		require.Len(t, forA, 2)
		require.Equal(t, chain.TypeCoinbase, forA[0].TxType)

		forB, err := chn.QueryTxsByWallet(ctx, walletB, 1, 10)
		require.NoError(t, err)
		require.Len(t, forB, 1)
	})

	t.Run("meta counters", func(t *testing.T) {
		m := chain.Meta{
			Height:           0,
			CirculatingCoins: money.Zero,
			CurrentReward:    money.MustParse("500"),
			HalvingInterval:  5,
			Difficulty:       3,
			UpdatedAt:        now,
		}
		require.NoError(t, chn.InsertMeta(ctx, db, m))

		got, err := chn.Meta(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 0, got.Height)
		require.Equal(t, 3, got.Difficulty)
		require.EqualValues(t, 5, got.HalvingInterval)
		require.True(t, got.CurrentReward.Equal(money.MustParse("500")))
		require.True(t, got.CirculatingCoins.IsZero())

		// The miner reads and writes the counters inside its commit.
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)

		locked, err := chn.MetaForUpdate(ctx, tx)
		require.NoError(t, err)

		locked.Height++
		locked.CirculatingCoins = locked.CirculatingCoins.Add(money.MustParse("500"))
		locked.CurrentReward = chain.HalveReward(locked.CurrentReward)
		require.NoError(t, chn.UpdateMeta(ctx, tx, locked))
		require.NoError(t, tx.Commit())

		got, err = chn.Meta(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, got.Height)
		require.True(t, got.CirculatingCoins.Equal(money.MustParse("500")))
		require.True(t, got.CurrentReward.Equal(money.MustParse("250")))
	})
}

func TestHalveReward(t *testing.T) {
	tt := []struct {
		current string
		want    string
	}{
		{"500", "250"},
		{"501", "250"}, // halves in whole coins
		{"3", "1"},
		{"2", "1"},
		{"1", "1"}, // floor of the reward
	}

	for _, tst := range tt {
		got := chain.HalveReward(money.MustParse(tst.current))
		require.True(t, got.Equal(money.MustParse(tst.want)), "halve(%s) = %s, want %s", tst.current, got, tst.want)
	}
}

func TestChainValidate(t *testing.T) {
	db := dbtest.New(t)
	chn := chain.New(zap.NewNop().Sugar(), db)
	ctx := context.Background()
	now := time.Now().UTC()

	const difficulty = 1

	genesis := genesisBlock(now.Unix())
	require.NoError(t, chn.InsertBlock(ctx, db, genesis))
	require.NoError(t, chn.InsertMeta(ctx, db, chain.Meta{
		Height:           0,
		CirculatingCoins: decimal.Zero,
		CurrentReward:    money.MustParse("500"),
		HalvingInterval:  5,
		Difficulty:       difficulty,
		UpdatedAt:        now,
	}))

	// Block 1 is fully consistent: real proof-of-work and a merkle root
	// derived from its stored transactions.
	hashes := []string{signature.Hash("b1 coinbase"), signature.Hash("b1 transfer")}
	root := merkle.Root(hashes)
	ts1 := now.Unix() + 1

	nonce, hash := solve(t, 1, ts1, genesis.Hash, root, difficulty)
	b1 := chain.Block{Index: 1, Timestamp: ts1, PreviousHash: genesis.Hash, Hash: hash, Nonce: nonce, MerkleRoot: root}
	require.NoError(t, chn.InsertBlock(ctx, db, b1))

	for i, h := range hashes {
		tx := chain.Tx{
			TxHash:     h,
			ReceiverID: walletA,
			Amount:     money.MustParse("1"),
			Fee:        money.Zero,
			TxType:     chain.TypeTransfer,
			BlockIndex: 1,
			Timestamp:  ts1,
			CreatedAt:  now,
		}
		if i == 0 {
			tx.TxType = chain.TypeCoinbase
		}
		require.NoError(t, chn.InsertTx(ctx, db, tx))
	}

	t.Run("consistent chain", func(t *testing.T) {
		report, err := chn.Validate(ctx)
		require.NoError(t, err)
		require.True(t, report.Valid, "issues: %+v", report.Issues)
		require.EqualValues(t, 2, report.BlocksChecked)
		require.EqualValues(t, 2, report.TxsChecked)
		require.Empty(t, report.Issues)
	})

	t.Run("corrupted chain", func(t *testing.T) {
		// Block 2 self-hashes correctly but does not link to block 1, and
		// its merkle root matches no stored transactions.
		badRoot := signature.Hash("nothing in this block")
		ts2 := now.Unix() + 2

		nonce, hash := solve(t, 2, ts2, signature.ZeroHash, badRoot, difficulty)
		b2 := chain.Block{Index: 2, Timestamp: ts2, PreviousHash: signature.ZeroHash, Hash: hash, Nonce: nonce, MerkleRoot: badRoot}
		require.NoError(t, chn.InsertBlock(ctx, db, b2))

		report, err := chn.Validate(ctx)
		require.NoError(t, err)
		require.False(t, report.Valid)
		require.EqualValues(t, 3, report.BlocksChecked)

		reasons := make(map[string]int64)
		for _, issue := range report.Issues {
			reasons[issue.Reason] = issue.BlockIndex
		}
		require.Contains(t, reasons, "broken parent link")
		require.Contains(t, reasons, "merkle root does not match transactions")
		require.EqualValues(t, 2, reasons["broken parent link"])
	})
}
