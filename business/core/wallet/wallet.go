// Package wallet provides access to wallets and the custodied key
// material behind them. Private keys are sealed with the service key
// before they touch the database and are only opened to sign a
// transaction on the owner's behalf.
package wallet

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/keystore"
	"github.com/dinarlabs/ledger/foundation/signature"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a wallet is not found.
var ErrNotFound = errors.New("wallet not found")

// Wallet represents a wallet and its custodied keys.
type Wallet struct {
	WalletID            string
	UserID              string
	PublicKey           string
	EncryptedPrivateKey string
	Balance             decimal.Decimal
	LastZakatDate       time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Core manages the set of APIs for wallet access.
type Core struct {
	log *zap.SugaredLogger
	db  *database.DB
	ks  *keystore.Keystore
}

// New constructs a core for wallet api access.
func New(log *zap.SugaredLogger, db *database.DB, ks *keystore.Keystore) *Core {
	return &Core{
		log: log,
		db:  db,
		ks:  ks,
	}
}

// Create generates a fresh keypair, derives the wallet id from the
// public key, seals the private key and records the wallet. An empty
// userID records a wallet owned by the system.
func (c *Core) Create(ctx context.Context, q database.Querier, userID string, now time.Time) (Wallet, error) {
	priv, err := signature.GenerateKeyPair()
	if err != nil {
		return Wallet{}, fmt.Errorf("generating keypair: %w", err)
	}

	pubPEM, err := signature.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return Wallet{}, fmt.Errorf("encoding public key: %w", err)
	}

	privPEM, err := signature.EncodePrivateKey(priv)
	if err != nil {
		return Wallet{}, fmt.Errorf("encoding private key: %w", err)
	}

	sealed, err := c.ks.Seal(privPEM)
	if err != nil {
		return Wallet{}, fmt.Errorf("sealing private key: %w", err)
	}

	w := Wallet{
		WalletID:            signature.WalletID(pubPEM),
		UserID:              userID,
		PublicKey:           pubPEM,
		EncryptedPrivateKey: sealed,
		Balance:             decimal.Zero,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	const query = `
	INSERT INTO wallets
		(wallet_id, user_id, public_key, encrypted_private_key, balance, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7)`

	var uid any
	if userID != "" {
		uid = userID
	}

	_, err = q.ExecContext(ctx, query, w.WalletID, uid, w.PublicKey,
		w.EncryptedPrivateKey, w.Balance.String(), now.Unix(), now.Unix())
	if err != nil {
		return Wallet{}, fmt.Errorf("inserting wallet: %w", err)
	}

	return w, nil
}

// QueryByID returns the wallet with the specified id.
func (c *Core) QueryByID(ctx context.Context, walletID string) (Wallet, error) {
	const query = `
	SELECT wallet_id, user_id, public_key, encrypted_private_key, balance, last_zakat_date, created_at, updated_at
	FROM wallets
	WHERE wallet_id = $1`

	w, err := scanWallet(c.db.QueryRowContext(ctx, query, walletID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("selecting wallet %s: %w", walletID, err)
	}

	return w, nil
}

// QueryByUser returns the wallet owned by the specified user.
func (c *Core) QueryByUser(ctx context.Context, userID string) (Wallet, error) {
	const query = `
	SELECT wallet_id, user_id, public_key, encrypted_private_key, balance, last_zakat_date, created_at, updated_at
	FROM wallets
	WHERE user_id = $1`

	w, err := scanWallet(c.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, fmt.Errorf("selecting wallet for user %s: %w", userID, err)
	}

	return w, nil
}

// Exists reports whether a wallet id is registered.
func (c *Core) Exists(ctx context.Context, walletID string) (bool, error) {
	const query = `
	SELECT COUNT(1)
	FROM wallets
	WHERE wallet_id = $1`

	var count int
	if err := c.db.QueryRowContext(ctx, query, walletID).Scan(&count); err != nil {
		return false, fmt.Errorf("checking wallet %s: %w", walletID, err)
	}

	return count > 0, nil
}

// PrivateKey opens the wallet's sealed private key. The decrypted key
// stays in memory only long enough to sign.
func (c *Core) PrivateKey(ctx context.Context, walletID string) (*rsa.PrivateKey, error) {
	w, err := c.QueryByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	privPEM, err := c.ks.Open(w.EncryptedPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("opening sealed key for wallet %s: %w", walletID, err)
	}

	priv, err := signature.DecodePrivateKey(privPEM)
	if err != nil {
		return nil, fmt.Errorf("decoding private key for wallet %s: %w", walletID, err)
	}

	return priv, nil
}

// SetBalanceCache overwrites the advisory balance column. The miner
// refreshes it inside its commit from the wallet's unspent outputs.
func (c *Core) SetBalanceCache(ctx context.Context, q database.Querier, walletID string, balance decimal.Decimal, now time.Time) error {
	const query = `
	UPDATE wallets
	SET balance = $2, updated_at = $3
	WHERE wallet_id = $1`

	if _, err := q.ExecContext(ctx, query, walletID, balance.String(), now.Unix()); err != nil {
		return fmt.Errorf("refreshing balance for wallet %s: %w", walletID, err)
	}

	return nil
}

// UpdateLastZakat records when zakat was last deducted from the wallet.
func (c *Core) UpdateLastZakat(ctx context.Context, q database.Querier, walletID string, when time.Time) error {
	const query = `
	UPDATE wallets
	SET last_zakat_date = $2, updated_at = $2
	WHERE wallet_id = $1`

	if _, err := q.ExecContext(ctx, query, walletID, when.Unix()); err != nil {
		return fmt.Errorf("updating zakat date for wallet %s: %w", walletID, err)
	}

	return nil
}

// QueryZakatDue returns user-owned wallets whose last deduction is older
// than the cutoff and whose cached balance meets the threshold. The
// balance filter runs on exact decimals; the cached column is advisory
// and the deduction re-checks real funds before transferring.
func (c *Core) QueryZakatDue(ctx context.Context, threshold decimal.Decimal, cutoff time.Time) ([]Wallet, error) {
	const query = `
	SELECT wallet_id, user_id, public_key, encrypted_private_key, balance, last_zakat_date, created_at, updated_at
	FROM wallets
	WHERE user_id IS NOT NULL
		AND (last_zakat_date IS NULL OR last_zakat_date < $1)
	ORDER BY wallet_id`

	rows, err := c.db.QueryContext(ctx, query, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("selecting zakat due wallets: %w", err)
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}
		if w.Balance.GreaterThanOrEqual(threshold) {
			wallets = append(wallets, w)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallets: %w", err)
	}

	return wallets, nil
}

// =============================================================================

// scanner is the subset of sql.Rows and sql.Row needed to read one row.
type scanner interface {
	Scan(dest ...any) error
}

func scanWallet(s scanner) (Wallet, error) {
	var (
		w         Wallet
		userID    sql.NullString
		balance   decimal.Decimal
		lastZakat sql.NullInt64
		createdAt int64
		updatedAt int64
	)

	err := s.Scan(&w.WalletID, &userID, &w.PublicKey, &w.EncryptedPrivateKey,
		&balance, &lastZakat, &createdAt, &updatedAt)
	if err != nil {
		return Wallet{}, err
	}

	w.UserID = userID.String
	w.Balance = balance
	if lastZakat.Valid {
		w.LastZakatDate = time.Unix(lastZakat.Int64, 0).UTC()
	}
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	w.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return w, nil
}
