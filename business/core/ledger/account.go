package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/beneficiary"
	"github.com/dinarlabs/ledger/business/core/logs"
	"github.com/dinarlabs/ledger/business/core/user"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/shopspring/decimal"
)

// Account pairs a registered user with their wallet.
type Account struct {
	User   user.User
	Wallet wallet.Wallet
}

// Register creates the user, provisions their wallet and issues the
// verification passcode. The user and wallet rows commit together so no
// account can exist without a wallet.
func (c *Core) Register(ctx context.Context, nu user.NewUser, ip string) (Account, error) {
	now := time.Now().UTC()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, fmt.Errorf("beginning register tx: %w", err)
	}
	defer tx.Rollback()

	usr, err := c.user.Create(ctx, tx, nu, now)
	if err != nil {
		return Account{}, err
	}

	wlt, err := c.wallet.Create(ctx, tx, usr.ID, now)
	if err != nil {
		return Account{}, err
	}

	if err := c.user.SetWallet(ctx, tx, usr.ID, wlt.WalletID, now); err != nil {
		return Account{}, err
	}

	otp, err := c.user.CreateOTP(ctx, tx, usr.Email, now)
	if err != nil {
		return Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return Account{}, fmt.Errorf("committing register tx: %w", err)
	}
	usr.WalletID = wlt.WalletID

	// Delivery failures must not lose the account; the user can request
	// another passcode.
	if err := c.otpSender.Send(ctx, usr.Email, otp); err != nil {
		c.log.Errorw("register", "status", "passcode delivery failed", "email", usr.Email, "ERROR", err)
	}

	c.logs.RecordSystem(ctx, logs.SystemLog{
		LogType: logs.TypeAuth,
		UserID:  usr.ID,
		Message: fmt.Sprintf("account registered with wallet %s", wlt.WalletID),
		IP:      ip,
	})

	return Account{User: usr, Wallet: wlt}, nil
}

// VerifyAccount consumes the emailed passcode and unlocks the account.
func (c *Core) VerifyAccount(ctx context.Context, email string, otp string, ip string) error {
	now := time.Now().UTC()

	if err := c.user.VerifyOTP(ctx, c.db, email, otp, now); err != nil {
		return err
	}

	c.logs.RecordSystem(ctx, logs.SystemLog{
		LogType: logs.TypeAuth,
		Message: fmt.Sprintf("account %s verified", email),
		IP:      ip,
	})

	return nil
}

// ResendOTP issues a fresh passcode for an unverified account.
func (c *Core) ResendOTP(ctx context.Context, email string) error {
	now := time.Now().UTC()

	usr, err := c.user.QueryByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.IsVerified {
		return user.ErrInvalidOTP
	}

	otp, err := c.user.CreateOTP(ctx, c.db, email, now)
	if err != nil {
		return err
	}

	return c.otpSender.Send(ctx, email, otp)
}

// Authenticate verifies the credential pair and returns the account.
func (c *Core) Authenticate(ctx context.Context, email string, password string, ip string) (user.User, error) {
	usr, err := c.user.Authenticate(ctx, email, password)
	if err != nil {
		c.logs.RecordSystem(ctx, logs.SystemLog{
			LogType: logs.TypeAuth,
			Message: fmt.Sprintf("failed login for %s", email),
			IP:      ip,
		})
		return user.User{}, err
	}

	c.logs.RecordSystem(ctx, logs.SystemLog{
		LogType: logs.TypeAuth,
		UserID:  usr.ID,
		Message: "login succeeded",
		IP:      ip,
	})

	return usr, nil
}

// UserByID returns the account behind a user id.
func (c *Core) UserByID(ctx context.Context, userID string) (user.User, error) {
	return c.user.QueryByID(ctx, userID)
}

// UpdateProfile applies account changes for the user. Changing the email
// flips the account back to unverified and mails a fresh passcode to the
// new address; the update and the passcode row commit together.
func (c *Core) UpdateProfile(ctx context.Context, userID string, uu user.UpdateUser, ip string) (user.User, error) {
	now := time.Now().UTC()

	usr, err := c.user.QueryByID(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	emailChanged := uu.Email != nil && *uu.Email != usr.Email

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return user.User{}, fmt.Errorf("beginning profile tx: %w", err)
	}
	defer tx.Rollback()

	usr, err = c.user.Update(ctx, tx, usr, uu, now)
	if err != nil {
		return user.User{}, err
	}

	var otp string
	if emailChanged {
		if otp, err = c.user.CreateOTP(ctx, tx, usr.Email, now); err != nil {
			return user.User{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return user.User{}, fmt.Errorf("committing profile tx: %w", err)
	}

	if emailChanged {
		if err := c.otpSender.Send(ctx, usr.Email, otp); err != nil {
			c.log.Errorw("profile", "status", "passcode delivery failed", "email", usr.Email, "ERROR", err)
		}
	}

	c.logs.RecordSystem(ctx, logs.SystemLog{
		LogType: logs.TypeAuth,
		UserID:  usr.ID,
		Message: "profile updated",
		IP:      ip,
	})

	return usr, nil
}

// WalletForUser returns the wallet owned by the user.
func (c *Core) WalletForUser(ctx context.Context, userID string) (wallet.Wallet, error) {
	return c.wallet.QueryByUser(ctx, userID)
}

// WalletByID returns the wallet with the given id.
func (c *Core) WalletByID(ctx context.Context, walletID string) (wallet.Wallet, error) {
	return c.wallet.QueryByID(ctx, walletID)
}

// Balance returns the wallet's spendable balance: the sum of unspent,
// unreserved outputs at this moment.
func (c *Core) Balance(ctx context.Context, walletID string) (decimal.Decimal, error) {
	if _, err := c.wallet.QueryByID(ctx, walletID); err != nil {
		return decimal.Zero, err
	}
	return c.utxo.SumAvailable(ctx, walletID)
}

// UTXOs returns the wallet's unspent outputs, reserved ones included.
func (c *Core) UTXOs(ctx context.Context, walletID string) ([]utxo.UTXO, error) {
	if _, err := c.wallet.QueryByID(ctx, walletID); err != nil {
		return nil, err
	}
	return c.utxo.QueryByWallet(ctx, walletID)
}

// AddBeneficiary saves a recipient in the user's address book. The
// wallet must exist so typos surface at save time, not transfer time.
func (c *Core) AddBeneficiary(ctx context.Context, userID string, walletID string, nickname string) (beneficiary.Beneficiary, error) {
	exists, err := c.wallet.Exists(ctx, walletID)
	if err != nil {
		return beneficiary.Beneficiary{}, err
	}
	if !exists {
		return beneficiary.Beneficiary{}, wallet.ErrNotFound
	}

	return c.beneficiary.Create(ctx, userID, walletID, nickname, time.Now().UTC())
}

// Beneficiaries returns the user's saved recipients.
func (c *Core) Beneficiaries(ctx context.Context, userID string) ([]beneficiary.Beneficiary, error) {
	return c.beneficiary.QueryByUser(ctx, userID)
}

// RemoveBeneficiary deletes a saved recipient owned by the user.
func (c *Core) RemoveBeneficiary(ctx context.Context, userID string, id string) error {
	return c.beneficiary.Delete(ctx, userID, id)
}
