// Package utxo provides access to the unspent transaction outputs that
// record every wallet's funds. An output moves through three states:
// available, reserved by a pending transaction, and spent inside a
// mined block. Only the reservation step competes across concurrent
// requests, so it carries the row locking.
package utxo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Set of error variables for reservation failures.
var (
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrConflict          = errors.New("reservation conflict")
)

// Set of lifecycle states derived from the stored columns.
const (
	StatusAvailable = "AVAILABLE"
	StatusReserved  = "RESERVED"
	StatusSpent     = "SPENT"
)

// UTXO represents a single output held by a wallet.
type UTXO struct {
	ID          int64
	WalletID    string
	Amount      decimal.Decimal
	TxHash      string
	OutputIndex int
	IsSpent     bool
	ReservedBy  string
	SpentInTx   string
	CreatedAt   time.Time
	SpentAt     time.Time
}

// Status reports the lifecycle state of the output.
func (u UTXO) Status() string {
	switch {
	case u.IsSpent:
		return StatusSpent
	case u.ReservedBy != "":
		return StatusReserved
	}
	return StatusAvailable
}

// NewUTXO contains the information needed to record a new output.
type NewUTXO struct {
	WalletID    string
	Amount      decimal.Decimal
	TxHash      string
	OutputIndex int
}

// Core manages the set of APIs for unspent output access.
type Core struct {
	log *zap.SugaredLogger
	db  *database.DB
}

// New constructs a core for unspent output api access.
func New(log *zap.SugaredLogger, db *database.DB) *Core {
	return &Core{
		log: log,
		db:  db,
	}
}

// Create records a new output. The (transaction hash, output index) pair
// is unique across the ledger, so a duplicate insert reports a conflict.
func (c *Core) Create(ctx context.Context, q database.Querier, nu NewUTXO, now time.Time) error {
	const query = `
	INSERT INTO utxos
		(wallet_id, amount, transaction_hash, output_index, created_at)
	VALUES
		($1, $2, $3, $4, $5)`

	if _, err := q.ExecContext(ctx, query, nu.WalletID, nu.Amount.String(), nu.TxHash, nu.OutputIndex, now.Unix()); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("output %s:%d exists: %w", nu.TxHash, nu.OutputIndex, ErrConflict)
		}
		return fmt.Errorf("inserting utxo: %w", err)
	}

	return nil
}

// Reserve selects available outputs for the wallet summing to at least
// the required amount and marks them reserved by the pending
// transaction. Selection is largest amount first so the input set stays
// small; ties break on age and then on output identity so the same
// available set always yields the same inputs. The guarded update
// serializes the transition: a competing reservation that grabbed any
// targeted row first surfaces as ErrConflict and the caller retries
// from scratch against the remaining set.
func (c *Core) Reserve(ctx context.Context, q database.Querier, walletID string, required decimal.Decimal, pendingID string) ([]UTXO, error) {
	const query = `
	SELECT
		id, wallet_id, amount, transaction_hash, output_index,
		is_spent, reserved_by, spent_in_tx_hash, created_at, spent_at
	FROM
		utxos
	WHERE
		wallet_id = $1 AND is_spent = FALSE AND reserved_by IS NULL`

	rows, err := q.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("selecting available utxos: %w", err)
	}
	defer rows.Close()

	available, err := collectUTXOs(rows)
	if err != nil {
		return nil, err
	}

	// Amounts are stored as text on SQLite, so the canonical selection
	// order is applied here on exact decimals rather than in SQL.
	sort.Slice(available, func(i, j int) bool {
		a, b := available[i], available[j]
		if cmp := a.Amount.Cmp(b.Amount); cmp != 0 {
			return cmp > 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.TxHash != b.TxHash {
			return a.TxHash < b.TxHash
		}
		return a.OutputIndex < b.OutputIndex
	})

	var picked []UTXO
	total := decimal.Zero

	for _, u := range available {
		picked = append(picked, u)
		total = total.Add(u.Amount)
		if total.GreaterThanOrEqual(required) {
			break
		}
	}

	if total.LessThan(required) {
		return nil, ErrInsufficientFunds
	}

	args := make([]any, 0, len(picked)+1)
	args = append(args, pendingID)

	placeholders := make([]string, 0, len(picked))
	for i, u := range picked {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, u.ID)
	}

	update := fmt.Sprintf(`
	UPDATE utxos
	SET reserved_by = $1
	WHERE id IN (%s) AND is_spent = FALSE AND reserved_by IS NULL`, strings.Join(placeholders, ", "))

	res, err := q.ExecContext(ctx, update, args...)
	if err != nil {
		if database.IsBusy(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("reserving utxos: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reserving utxos: %w", err)
	}

	// A competing transaction transitioned one of the targeted rows
	// between the select and the update.
	if n != int64(len(picked)) {
		return nil, ErrConflict
	}

	for i := range picked {
		picked[i].ReservedBy = pendingID
	}

	return picked, nil
}

// Release returns every output still reserved by the pending transaction
// to the available state. It reports how many rows transitioned.
func (c *Core) Release(ctx context.Context, q database.Querier, pendingID string) (int64, error) {
	const query = `
	UPDATE utxos
	SET reserved_by = NULL
	WHERE reserved_by = $1 AND is_spent = FALSE`

	res, err := q.ExecContext(ctx, query, pendingID)
	if err != nil {
		return 0, fmt.Errorf("releasing utxos: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("releasing utxos: %w", err)
	}

	return n, nil
}

// Spend transitions every output reserved by the pending transaction to
// spent, recording the transaction hash that consumed them.
func (c *Core) Spend(ctx context.Context, q database.Querier, pendingID string, txHash string, now time.Time) (int64, error) {
	const query = `
	UPDATE utxos
	SET is_spent = TRUE, spent_at = $2, spent_in_tx_hash = $3
	WHERE reserved_by = $1 AND is_spent = FALSE`

	res, err := q.ExecContext(ctx, query, pendingID, now.Unix(), txHash)
	if err != nil {
		return 0, fmt.Errorf("spending utxos: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("spending utxos: %w", err)
	}

	return n, nil
}

// QueryReserved returns the outputs currently reserved by the specified
// pending transaction.
func (c *Core) QueryReserved(ctx context.Context, q database.Querier, pendingID string) ([]UTXO, error) {
	const query = `
	SELECT
		id, wallet_id, amount, transaction_hash, output_index,
		is_spent, reserved_by, spent_in_tx_hash, created_at, spent_at
	FROM
		utxos
	WHERE
		reserved_by = $1 AND is_spent = FALSE
	ORDER BY
		id`

	rows, err := q.QueryContext(ctx, query, pendingID)
	if err != nil {
		return nil, fmt.Errorf("selecting reserved utxos: %w", err)
	}
	defer rows.Close()

	return collectUTXOs(rows)
}

// QueryByWallet returns every unspent output the wallet holds, both
// available and reserved.
func (c *Core) QueryByWallet(ctx context.Context, walletID string) ([]UTXO, error) {
	const query = `
	SELECT
		id, wallet_id, amount, transaction_hash, output_index,
		is_spent, reserved_by, spent_in_tx_hash, created_at, spent_at
	FROM
		utxos
	WHERE
		wallet_id = $1 AND is_spent = FALSE
	ORDER BY
		created_at ASC, transaction_hash ASC, output_index ASC`

	rows, err := c.db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("selecting wallet utxos: %w", err)
	}
	defer rows.Close()

	return collectUTXOs(rows)
}

// SumAvailable reports the total value of the wallet's available
// outputs. Amounts are summed as decimals in process; SQL aggregation
// would coerce the stored values through floats on SQLite.
func (c *Core) SumAvailable(ctx context.Context, walletID string) (decimal.Decimal, error) {
	const query = `
	SELECT amount
	FROM utxos
	WHERE wallet_id = $1 AND is_spent = FALSE AND reserved_by IS NULL`

	return c.sumAmounts(ctx, c.db, query, walletID)
}

// SumUnspent reports the total value of the wallet's unspent outputs,
// counting reserved outputs as still owned. It runs on the caller's
// querier so the miner can refresh balances inside its commit.
func (c *Core) SumUnspent(ctx context.Context, q database.Querier, walletID string) (decimal.Decimal, error) {
	const query = `
	SELECT amount
	FROM utxos
	WHERE wallet_id = $1 AND is_spent = FALSE`

	return c.sumAmounts(ctx, q, query, walletID)
}

func (c *Core) sumAmounts(ctx context.Context, q database.Querier, query string, walletID string) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, query, walletID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("summing utxos: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scanning amount: %w", err)
		}
		sum = sum.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("iterating amounts: %w", err)
	}

	return sum, nil
}

// =============================================================================

// scanner is the subset of sql.Rows and sql.Row needed to read one row.
type scanner interface {
	Scan(dest ...any) error
}

func scanUTXO(s scanner) (UTXO, error) {
	var (
		u          UTXO
		amount     decimal.Decimal
		reservedBy sql.NullString
		spentInTx  sql.NullString
		createdAt  int64
		spentAt    sql.NullInt64
	)

	err := s.Scan(&u.ID, &u.WalletID, &amount, &u.TxHash, &u.OutputIndex,
		&u.IsSpent, &reservedBy, &spentInTx, &createdAt, &spentAt)
	if err != nil {
		return UTXO{}, fmt.Errorf("scanning utxo: %w", err)
	}

	u.Amount = amount
	u.ReservedBy = reservedBy.String
	u.SpentInTx = spentInTx.String
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	if spentAt.Valid {
		u.SpentAt = time.Unix(spentAt.Int64, 0).UTC()
	}

	return u, nil
}

func collectUTXOs(rows *sql.Rows) ([]UTXO, error) {
	var utxos []UTXO

	for rows.Next() {
		u, err := scanUTXO(rows)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating utxos: %w", err)
	}

	return utxos, nil
}
