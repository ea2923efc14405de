package tran_test

import (
	"context"
	"testing"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/business/core/tran"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/business/sys/dbtest"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/keystore"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/signature"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stack struct {
	db      *database.DB
	wallets *wallet.Core
	outputs *utxo.Core
	pool    *mempool.Core
	adm     *tran.Core
}

func newStack(t *testing.T) stack {
	t.Helper()

	db := dbtest.New(t)
	log := zap.NewNop().Sugar()

	key, err := keystore.GenerateKey()
	require.NoError(t, err)
	ks, err := keystore.New(key)
	require.NoError(t, err)

	wallets := wallet.New(log, db, ks)
	outputs := utxo.New(log, db)
	pool := mempool.New(log, db)

	adm := tran.New(tran.Config{
		Log:     log,
		DB:      db,
		UTXO:    outputs,
		Mempool: pool,
		Chain:   chain.New(log, db),
		Wallet:  wallets,
		Fee:     money.MustParse("0.1"),
		Skew:    5 * time.Minute,
	})

	return stack{db: db, wallets: wallets, outputs: outputs, pool: pool, adm: adm}
}

func TestAdmission(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sender, err := s.wallets.Create(ctx, s.db, "", now)
	require.NoError(t, err)
	receiver, err := s.wallets.Create(ctx, s.db, "", now)
	require.NoError(t, err)

	// Three outputs so partial reservations leave funds behind.
	for i, amount := range []string{"60", "25", "15"} {
		nu := utxo.NewUTXO{
			WalletID:    sender.WalletID,
			Amount:      money.MustParse(amount),
			TxHash:      "funding",
			OutputIndex: i,
		}
		require.NoError(t, s.outputs.Create(ctx, s.db, nu, now))
	}

	t.Run("signed submission is admitted", func(t *testing.T) {
		amount := money.MustParse("25.5")

		st, err := s.adm.BuildSigned(ctx, sender.WalletID, receiver.WalletID, amount, s.adm.Fee(), "rent", now)
		require.NoError(t, err)
		require.Equal(t, sender.PublicKey, st.PublicKey)

		rcpt, err := s.adm.Submit(ctx, st, now)
		require.NoError(t, err)
		require.Equal(t, tran.StatusPending, rcpt.Status)
		require.NotEmpty(t, rcpt.PendingID)
		require.True(t, rcpt.Fee.Equal(money.MustParse("0.1")))

		wantHash := signature.TxHash(sender.WalletID, receiver.WalletID, amount, money.MustParse("0.1"), st.Timestamp, "rent")
		require.Equal(t, wantHash, rcpt.TxHash)

		// The 25.6 requirement is covered by the 60 output alone.
		reserved, err := s.outputs.QueryReserved(ctx, s.db, rcpt.PendingID)
		require.NoError(t, err)
		require.Len(t, reserved, 1)
		require.True(t, reserved[0].Amount.Equal(money.MustParse("60")))

		available, err := s.outputs.SumAvailable(ctx, sender.WalletID)
		require.NoError(t, err)
		require.True(t, available.Equal(money.MustParse("40")), "available: %s", available)

		// Resubmitting the same signed transfer is a duplicate.
		_, err = s.adm.Submit(ctx, st, now)
		require.ErrorIs(t, err, tran.ErrDuplicateTx)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		st, err := s.adm.BuildSigned(ctx, sender.WalletID, receiver.WalletID, money.MustParse("1000"), s.adm.Fee(), "", now)
		require.NoError(t, err)

		_, err = s.adm.Submit(ctx, st, now)
		require.ErrorIs(t, err, utxo.ErrInsufficientFunds)

		// The failed admission leaves no reservation and no pending row.
		available, err := s.outputs.SumAvailable(ctx, sender.WalletID)
		require.NoError(t, err)
		require.True(t, available.Equal(money.MustParse("40")), "available: %s", available)

		count, err := s.pool.Count(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, count)
	})

	t.Run("tampered amount", func(t *testing.T) {
		st, err := s.adm.BuildSigned(ctx, sender.WalletID, receiver.WalletID, money.MustParse("10"), s.adm.Fee(), "", now)
		require.NoError(t, err)

		st.Amount = money.MustParse("11")
		_, err = s.adm.Submit(ctx, st, now)
		require.ErrorIs(t, err, tran.ErrSignature)
	})

	t.Run("wrong key", func(t *testing.T) {
		st, err := s.adm.BuildSigned(ctx, sender.WalletID, receiver.WalletID, money.MustParse("10"), s.adm.Fee(), "", now)
		require.NoError(t, err)

		st.PublicKey = receiver.PublicKey
		_, err = s.adm.Submit(ctx, st, now)
		require.ErrorIs(t, err, tran.ErrIdentity)
	})

	t.Run("unknown wallets", func(t *testing.T) {
		const stranger = "dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd"

		_, err := s.adm.BuildSigned(ctx, stranger, receiver.WalletID, money.MustParse("10"), s.adm.Fee(), "", now)
		require.ErrorIs(t, err, tran.ErrUnknownWallet)

		st, err := s.adm.BuildSigned(ctx, sender.WalletID, stranger, money.MustParse("10"), s.adm.Fee(), "", now)
		require.NoError(t, err)

		_, err = s.adm.Submit(ctx, st, now)
		require.ErrorIs(t, err, tran.ErrUnknownWallet)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		st, err := s.adm.BuildSigned(ctx, sender.WalletID, receiver.WalletID, money.MustParse("10"), s.adm.Fee(), "", now.Add(-10*time.Minute))
		require.NoError(t, err)

		_, err = s.adm.Submit(ctx, st, now)
		require.ErrorIs(t, err, tran.ErrValidation)
	})

	t.Run("self transfer", func(t *testing.T) {
		st, err := s.adm.BuildSigned(ctx, sender.WalletID, sender.WalletID, money.MustParse("10"), s.adm.Fee(), "", now)
		require.NoError(t, err)

		_, err = s.adm.Submit(ctx, st, now)
		require.ErrorIs(t, err, tran.ErrValidation)
	})

	t.Run("zero amount", func(t *testing.T) {
		st := tran.SubmitTx{
			SenderID:   sender.WalletID,
			ReceiverID: receiver.WalletID,
			Amount:     decimal.Zero,
			Signature:  "irrelevant",
			Timestamp:  now.Unix(),
			PublicKey:  sender.PublicKey,
		}

		_, err := s.adm.Submit(ctx, st, now)
		require.ErrorIs(t, err, tran.ErrValidation)
	})

	t.Run("system submission carries no fee", func(t *testing.T) {
		amount := money.MustParse("30")

		st, err := s.adm.BuildSigned(ctx, sender.WalletID, receiver.WalletID, amount, decimal.Zero, "zakat", now)
		require.NoError(t, err)

		rcpt, err := s.adm.SubmitSystem(ctx, st, now)
		require.NoError(t, err)
		require.True(t, rcpt.Fee.IsZero())

		p, err := s.pool.QueryByHash(ctx, rcpt.TxHash)
		require.NoError(t, err)
		require.True(t, p.Fee.IsZero())

		// 25 + 15 cover the requirement, leaving nothing available.
		available, err := s.outputs.SumAvailable(ctx, sender.WalletID)
		require.NoError(t, err)
		require.True(t, available.IsZero(), "available: %s", available)

		count, err := s.pool.Count(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 2, count)
	})
}
