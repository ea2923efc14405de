// Package zakat runs the periodic 2.5% deduction over wallets holding at
// least the nisab threshold. Deductions are ordinary signed transfers from
// the holder to a system pool wallet, so they flow through admission and
// mining like any other transaction and the chain stays the single source
// of truth for them.
package zakat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/logs"
	"github.com/dinarlabs/ledger/business/core/tran"
	"github.com/dinarlabs/ledger/business/core/user"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PoolEmail identifies the system account holding collected zakat. The
// account has no usable password and never logs in.
const PoolEmail = "zakat@system.local"

// poolCNIC is the sentinel identity document for the pool account.
const poolCNIC = "SYSTEM-ZAKAT-POOL"

// ErrPoolMissing is returned when a deduction runs before the pool
// wallet has been provisioned.
var ErrPoolMissing = errors.New("zakat pool wallet not provisioned")

// Record represents a single deduction that has been submitted.
type Record struct {
	ID            int64
	WalletID      string
	Amount        decimal.Decimal
	TxHash        string
	DeductionDate time.Time
}

// Summary reports the outcome of one deduction walk.
type Summary struct {
	Checked  int
	Deducted int
	Skipped  int
	Failed   int
	Total    decimal.Decimal
}

// Config contains everything the zakat core needs.
type Config struct {
	Log       *zap.SugaredLogger
	DB        *database.DB
	User      *user.Core
	Wallet    *wallet.Core
	UTXO      *utxo.Core
	Tran      *tran.Core
	Logs      *logs.Core
	Rate      decimal.Decimal
	Threshold decimal.Decimal
	Period    time.Duration
}

// Core manages the zakat deduction cycle.
type Core struct {
	log       *zap.SugaredLogger
	db        *database.DB
	user      *user.Core
	wallet    *wallet.Core
	utxo      *utxo.Core
	tran      *tran.Core
	logs      *logs.Core
	rate      decimal.Decimal
	threshold decimal.Decimal
	period    time.Duration
	poolID    string
}

// New constructs a core for zakat processing.
func New(cfg Config) *Core {
	return &Core{
		log:       cfg.Log,
		db:        cfg.DB,
		user:      cfg.User,
		wallet:    cfg.Wallet,
		utxo:      cfg.UTXO,
		tran:      cfg.Tran,
		logs:      cfg.Logs,
		rate:      cfg.Rate,
		threshold: cfg.Threshold,
		period:    cfg.Period,
	}
}

// PoolWalletID returns the wallet id of the pool account. Empty until
// EnsurePool has run.
func (c *Core) PoolWalletID() string {
	return c.poolID
}

// EnsurePool provisions the system account and wallet that collect
// deductions. Safe to call on every startup; an existing pool is reused.
func (c *Core) EnsurePool(ctx context.Context, now time.Time) (string, error) {
	usr, err := c.user.QueryByEmail(ctx, PoolEmail)
	if err == nil {
		if usr.WalletID == "" {
			return "", fmt.Errorf("pool account %s has no wallet", usr.ID)
		}
		c.poolID = usr.WalletID
		return c.poolID, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return "", fmt.Errorf("looking up pool account: %w", err)
	}

	// The account only exists to own the pool wallet. Give it a random
	// password nobody knows so it can never authenticate.
	pw := make([]byte, 32)
	if _, err := rand.Read(pw); err != nil {
		return "", fmt.Errorf("generating pool password: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning pool tx: %w", err)
	}
	defer tx.Rollback()

	nu := user.NewUser{
		Email:    PoolEmail,
		Password: hex.EncodeToString(pw),
		FullName: "Zakat Pool",
		CNIC:     poolCNIC,
	}

	pool, err := c.user.Create(ctx, tx, nu, now)
	if err != nil {
		return "", fmt.Errorf("creating pool account: %w", err)
	}

	if err := c.user.MarkVerified(ctx, tx, pool.ID, now); err != nil {
		return "", fmt.Errorf("verifying pool account: %w", err)
	}

	w, err := c.wallet.Create(ctx, tx, pool.ID, now)
	if err != nil {
		return "", fmt.Errorf("creating pool wallet: %w", err)
	}

	if err := c.user.SetWallet(ctx, tx, pool.ID, w.WalletID, now); err != nil {
		return "", fmt.Errorf("attaching pool wallet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing pool tx: %w", err)
	}

	c.log.Infow("zakat", "status", "pool provisioned", "wallet", w.WalletID)

	c.poolID = w.WalletID
	return c.poolID, nil
}

// RunOnce walks every wallet due for deduction and submits a transfer of
// rate times the spendable balance to the pool. A wallet that fails is
// logged and skipped so one bad wallet cannot stall the cycle.
func (c *Core) RunOnce(ctx context.Context, now time.Time) (Summary, error) {
	if c.poolID == "" {
		return Summary{}, ErrPoolMissing
	}

	cutoff := now.Add(-c.period)

	due, err := c.wallet.QueryZakatDue(ctx, c.threshold, cutoff)
	if err != nil {
		return Summary{}, fmt.Errorf("selecting due wallets: %w", err)
	}

	sum := Summary{Checked: len(due), Total: decimal.Zero}

	for _, w := range due {
		if w.WalletID == c.poolID {
			sum.Skipped++
			continue
		}

		amount, err := c.deduct(ctx, w, now)
		switch {
		case err == nil:
			sum.Deducted++
			sum.Total = sum.Total.Add(amount)

		case errors.Is(err, utxo.ErrInsufficientFunds), errors.Is(err, errBelowThreshold):
			sum.Skipped++

		default:
			sum.Failed++
			c.log.Errorw("zakat", "status", "deduction failed", "wallet", w.WalletID, "ERROR", err)
			c.logs.RecordSystem(ctx, logs.SystemLog{
				LogType: logs.TypeError,
				Message: fmt.Sprintf("zakat deduction failed for wallet %s: %v", w.WalletID, err),
			})
		}
	}

	c.log.Infow("zakat", "status", "cycle complete", "checked", sum.Checked,
		"deducted", sum.Deducted, "skipped", sum.Skipped, "failed", sum.Failed,
		"total", money.Format(sum.Total))

	return sum, nil
}

// errBelowThreshold marks wallets whose live balance dropped under the
// nisab between selection and deduction.
var errBelowThreshold = errors.New("balance below threshold")

func (c *Core) deduct(ctx context.Context, w wallet.Wallet, now time.Time) (decimal.Decimal, error) {

	// The cached balance selected the wallet; recheck against spendable
	// outputs so reserved funds are not deducted from.
	balance, err := c.utxo.SumAvailable(ctx, w.WalletID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing balance: %w", err)
	}
	if balance.Cmp(c.threshold) < 0 {
		return decimal.Zero, errBelowThreshold
	}

	amount := money.Round(balance.Mul(c.rate))
	if !amount.IsPositive() {
		return decimal.Zero, errBelowThreshold
	}

	note := fmt.Sprintf("zakat %s deduction", now.UTC().Format("2006-01"))

	st, err := c.tran.BuildSigned(ctx, w.WalletID, c.poolID, amount, decimal.Zero, note, now)
	if err != nil {
		return decimal.Zero, fmt.Errorf("signing deduction: %w", err)
	}

	rcpt, err := c.tran.SubmitSystem(ctx, st, now)
	if err != nil {
		return decimal.Zero, fmt.Errorf("submitting deduction: %w", err)
	}

	const query = `
	INSERT INTO zakat_records
		(wallet_id, amount, transaction_hash, deduction_date)
	VALUES
		($1, $2, $3, $4)`

	if _, err := c.db.ExecContext(ctx, query, w.WalletID, money.Format(amount), rcpt.TxHash, now.Unix()); err != nil {
		return decimal.Zero, fmt.Errorf("recording deduction: %w", err)
	}

	if err := c.wallet.UpdateLastZakat(ctx, c.db, w.WalletID, now); err != nil {
		return decimal.Zero, fmt.Errorf("stamping deduction date: %w", err)
	}

	c.logs.RecordSystem(ctx, logs.SystemLog{
		LogType: logs.TypeZakat,
		Message: fmt.Sprintf("deducted %s from wallet %s", money.Format(amount), w.WalletID),
	})

	c.log.Infow("zakat", "status", "deducted", "wallet", w.WalletID,
		"amount", money.Format(amount), "tx", rcpt.TxHash)

	return amount, nil
}

// Records returns a page of deductions, newest first. An empty walletID
// returns deductions across all wallets.
func (c *Core) Records(ctx context.Context, walletID string, pageNumber int, rowsPerPage int) ([]Record, error) {
	query := `
	SELECT id, wallet_id, amount, transaction_hash, deduction_date
	FROM zakat_records`

	args := []any{}
	if walletID != "" {
		query += ` WHERE wallet_id = $1`
		args = append(args, walletID)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, rowsPerPage, (pageNumber-1)*rowsPerPage)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting zakat records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			r      Record
			amount string
			date   int64
		)
		if err := rows.Scan(&r.ID, &r.WalletID, &amount, &r.TxHash, &date); err != nil {
			return nil, fmt.Errorf("scanning zakat record: %w", err)
		}
		if r.Amount, err = money.Parse(amount); err != nil {
			return nil, fmt.Errorf("parsing zakat amount: %w", err)
		}
		r.DeductionDate = time.Unix(date, 0).UTC()
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zakat records: %w", err)
	}

	return recs, nil
}

// PoolBalance returns the spendable balance of the pool wallet.
func (c *Core) PoolBalance(ctx context.Context) (decimal.Decimal, error) {
	if c.poolID == "" {
		return decimal.Zero, ErrPoolMissing
	}
	return c.utxo.SumAvailable(ctx, c.poolID)
}
