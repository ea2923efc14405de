package beneficiary_test

import (
	"context"
	"testing"
	"time"

	"github.com/dinarlabs/ledger/business/core/beneficiary"
	"github.com/dinarlabs/ledger/business/core/user"
	"github.com/dinarlabs/ledger/business/sys/dbtest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	walletX = "1111111111111111111111111111111111111111111111111111111111111111"
	walletY = "2222222222222222222222222222222222222222222222222222222222222222"
)

func TestBeneficiaries(t *testing.T) {
	db := dbtest.New(t)
	log := zap.NewNop().Sugar()
	benCore := beneficiary.New(log, db)
	usrCore := user.New(log, db)
	ctx := context.Background()
	now := time.Now().UTC()

	alice, err := usrCore.Create(ctx, db, user.NewUser{
		Email:    "alice@example.com",
		Password: "gophers",
		FullName: "Alice Rahman",
		CNIC:     "42101-1234567-1",
	}, now)
	require.NoError(t, err)

	bob, err := usrCore.Create(ctx, db, user.NewUser{
		Email:    "bob@example.com",
		Password: "gophers",
		FullName: "Bob Malik",
		CNIC:     "42101-7654321-2",
	}, now)
	require.NoError(t, err)

	var landlord beneficiary.Beneficiary

	t.Run("save and list", func(t *testing.T) {
		landlord, err = benCore.Create(ctx, alice.ID, walletX, "Landlord", now)
		require.NoError(t, err)
		require.NotEmpty(t, landlord.ID)

		_, err = benCore.Create(ctx, alice.ID, walletY, "Mom", now.Add(time.Second))
		require.NoError(t, err)

		saved, err := benCore.QueryByUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, saved, 2)
		require.Equal(t, "Landlord", saved[0].Nickname)
		require.Equal(t, walletX, saved[0].WalletID)
		require.Equal(t, alice.ID, saved[0].UserID)
		require.Equal(t, "Mom", saved[1].Nickname)

		none, err := benCore.QueryByUser(ctx, bob.ID)
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("duplicate save rejected", func(t *testing.T) {
		_, err := benCore.Create(ctx, alice.ID, walletX, "Landlord again", now)
		require.ErrorIs(t, err, beneficiary.ErrAlreadyExists)

		// The same wallet can live in another user's address book.
		_, err = benCore.Create(ctx, bob.ID, walletX, "Alice's landlord", now)
		require.NoError(t, err)
	})

	t.Run("lookup is scoped to the owner", func(t *testing.T) {
		got, err := benCore.QueryByID(ctx, alice.ID, landlord.ID)
		require.NoError(t, err)
		require.Equal(t, landlord.ID, got.ID)
		require.Equal(t, "Landlord", got.Nickname)

		_, err = benCore.QueryByID(ctx, bob.ID, landlord.ID)
		require.ErrorIs(t, err, beneficiary.ErrNotFound)
	})

	t.Run("delete is scoped to the owner", func(t *testing.T) {
		require.ErrorIs(t, benCore.Delete(ctx, bob.ID, landlord.ID), beneficiary.ErrNotFound)

		require.NoError(t, benCore.Delete(ctx, alice.ID, landlord.ID))
		require.ErrorIs(t, benCore.Delete(ctx, alice.ID, landlord.ID), beneficiary.ErrNotFound)

		saved, err := benCore.QueryByUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, saved, 1)
		require.Equal(t, "Mom", saved[0].Nickname)
	})
}
