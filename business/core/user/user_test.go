package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/dinarlabs/ledger/business/core/user"
	"github.com/dinarlabs/ledger/business/sys/dbtest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestUserLifecycle(t *testing.T) {
	db := dbtest.New(t)
	usrCore := user.New(zap.NewNop().Sugar(), db)
	ctx := context.Background()
	now := time.Now().UTC()

	nu := user.NewUser{
		Email:    "alice@example.com",
		Password: "gophers",
		FullName: "Alice Rahman",
		CNIC:     "42101-1234567-1",
	}

	var alice user.User

	t.Run("register and query", func(t *testing.T) {
		var err error
		alice, err = usrCore.Create(ctx, db, nu, now)
		require.NoError(t, err)
		require.NotEmpty(t, alice.ID)

		got, err := usrCore.QueryByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, nu.Email, got.Email)
		require.Equal(t, nu.FullName, got.FullName)
		require.Equal(t, nu.CNIC, got.CNIC)
		require.False(t, got.IsVerified)
		require.Empty(t, got.WalletID)
		require.Equal(t, now.Unix(), got.CreatedAt.Unix())
		require.NoError(t, bcrypt.CompareHashAndPassword(got.PasswordHash, []byte(nu.Password)))

		byEmail, err := usrCore.QueryByEmail(ctx, nu.Email)
		require.NoError(t, err)
		require.Equal(t, alice.ID, byEmail.ID)
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		_, err := usrCore.Create(ctx, db, nu, now)
		require.ErrorIs(t, err, user.ErrUniqueEmail)

		sameCNIC := nu
		sameCNIC.Email = "alice2@example.com"
		_, err = usrCore.Create(ctx, db, sameCNIC, now)
		require.ErrorIs(t, err, user.ErrUniqueEmail)
	})

	t.Run("unknown lookups", func(t *testing.T) {
		_, err := usrCore.QueryByID(ctx, "3e4a70a1-ffad-4bb1-9f09-ecb0cf38fac1")
		require.ErrorIs(t, err, user.ErrNotFound)

		_, err = usrCore.QueryByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("authenticate requires verification", func(t *testing.T) {
		_, err := usrCore.Authenticate(ctx, nu.Email, nu.Password)
		require.ErrorIs(t, err, user.ErrNotVerified)

		_, err = usrCore.Authenticate(ctx, nu.Email, "wrong password")
		require.ErrorIs(t, err, user.ErrAuthenticationFailure)

		_, err = usrCore.Authenticate(ctx, "nobody@example.com", nu.Password)
		require.ErrorIs(t, err, user.ErrAuthenticationFailure)
	})

	t.Run("passcode verification", func(t *testing.T) {
		otp, err := usrCore.CreateOTP(ctx, db, nu.Email, now)
		require.NoError(t, err)
		require.Regexp(t, `^[0-9]{6}$`, otp)

		wrong := "000000"
		if wrong == otp {
			wrong = "000001"
		}
		require.ErrorIs(t, usrCore.VerifyOTP(ctx, db, nu.Email, wrong, now), user.ErrInvalidOTP)

		require.NoError(t, usrCore.VerifyOTP(ctx, db, nu.Email, otp, now))

		got, err := usrCore.Authenticate(ctx, nu.Email, nu.Password)
		require.NoError(t, err)
		require.True(t, got.IsVerified)

		// A consumed passcode cannot be replayed.
		require.ErrorIs(t, usrCore.VerifyOTP(ctx, db, nu.Email, otp, now), user.ErrInvalidOTP)
	})

	t.Run("expired passcode", func(t *testing.T) {
		nb := user.NewUser{
			Email:    "bob@example.com",
			Password: "gophers",
			FullName: "Bob Malik",
			CNIC:     "42101-7654321-2",
		}
		_, err := usrCore.Create(ctx, db, nb, now)
		require.NoError(t, err)

		otp, err := usrCore.CreateOTP(ctx, db, nb.Email, now)
		require.NoError(t, err)

		late := now.Add(11 * time.Minute)
		require.ErrorIs(t, usrCore.VerifyOTP(ctx, db, nb.Email, otp, late), user.ErrInvalidOTP)
	})

	t.Run("attach wallet", func(t *testing.T) {
		const walletID = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

		require.NoError(t, usrCore.SetWallet(ctx, db, alice.ID, walletID, now))

		got, err := usrCore.QueryByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, walletID, got.WalletID)
	})

	t.Run("update profile", func(t *testing.T) {
		got, err := usrCore.QueryByID(ctx, alice.ID)
		require.NoError(t, err)
		require.True(t, got.IsVerified)

		name := "Alice R. Khan"
		updated, err := usrCore.Update(ctx, db, got, user.UpdateUser{FullName: &name}, now.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, name, updated.FullName)
		require.True(t, updated.IsVerified)

		// Changing the email re-opens verification.
		email := "alice.khan@example.com"
		updated, err = usrCore.Update(ctx, db, updated, user.UpdateUser{Email: &email}, now.Add(2*time.Minute))
		require.NoError(t, err)
		require.Equal(t, email, updated.Email)
		require.False(t, updated.IsVerified)

		got, err = usrCore.QueryByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, name, got.FullName)
		require.Equal(t, email, got.Email)
		require.False(t, got.IsVerified)

		// Bob already holds this address.
		taken := "bob@example.com"
		_, err = usrCore.Update(ctx, db, got, user.UpdateUser{Email: &taken}, now.Add(3*time.Minute))
		require.ErrorIs(t, err, user.ErrUniqueEmail)
	})
}
