// Package mempool provides access to the pool of admitted transactions
// waiting to be mined. Rows enter through admission, leave through a
// mined block or the expiry sweep, and are never updated in place.
package mempool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Set of error variables for mempool access.
var (
	ErrDuplicateTx = errors.New("transaction already pending")
	ErrNotFound    = errors.New("pending transaction not found")
)

// Pending represents an admitted transaction waiting to be mined.
type Pending struct {
	ID         string
	TxHash     string
	SenderID   string
	ReceiverID string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	Note       string
	Signature  string
	Timestamp  int64
	CreatedAt  time.Time
}

// Core manages the set of APIs for mempool access.
type Core struct {
	log *zap.SugaredLogger
	db  *database.DB
}

// New constructs a core for mempool api access.
func New(log *zap.SugaredLogger, db *database.DB) *Core {
	return &Core{
		log: log,
		db:  db,
	}
}

// Insert admits a transaction into the pool. The transaction hash is
// unique, so a duplicate submission reports ErrDuplicateTx.
func (c *Core) Insert(ctx context.Context, q database.Querier, p Pending) error {
	const query = `
	INSERT INTO pending_transactions
		(id, transaction_hash, sender_wallet_id, receiver_wallet_id, amount, fee, note, signature, timestamp, created_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := q.ExecContext(ctx, query, p.ID, p.TxHash, p.SenderID, p.ReceiverID,
		p.Amount.String(), p.Fee.String(), p.Note, p.Signature, p.Timestamp, p.CreatedAt.Unix())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateTx
		}
		return fmt.Errorf("inserting pending transaction: %w", err)
	}

	return nil
}

// Contains reports whether a transaction hash is already pending.
func (c *Core) Contains(ctx context.Context, txHash string) (bool, error) {
	const query = `
	SELECT COUNT(1)
	FROM pending_transactions
	WHERE transaction_hash = $1`

	var count int
	if err := c.db.QueryRowContext(ctx, query, txHash).Scan(&count); err != nil {
		return false, fmt.Errorf("checking pending transaction: %w", err)
	}

	return count > 0, nil
}

// QueryByHash returns the pending transaction with the given hash.
func (c *Core) QueryByHash(ctx context.Context, txHash string) (Pending, error) {
	const query = `
	SELECT
		id, transaction_hash, sender_wallet_id, receiver_wallet_id,
		amount, fee, note, signature, timestamp, created_at
	FROM
		pending_transactions
	WHERE
		transaction_hash = $1`

	rows, err := c.db.QueryContext(ctx, query, txHash)
	if err != nil {
		return Pending{}, fmt.Errorf("selecting pending transaction: %w", err)
	}
	defer rows.Close()

	ps, err := collectPending(rows)
	if err != nil {
		return Pending{}, err
	}
	if len(ps) == 0 {
		return Pending{}, ErrNotFound
	}

	return ps[0], nil
}

// Count reports how many transactions are waiting to be mined.
func (c *Core) Count(ctx context.Context) (int, error) {
	const query = `
	SELECT COUNT(1)
	FROM pending_transactions`

	var count int
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting pending transactions: %w", err)
	}

	return count, nil
}

// Batch returns up to max pending transactions, oldest first by their
// transaction timestamp with the id breaking ties. The miner works from
// this snapshot and removes the rows only when the block commits.
func (c *Core) Batch(ctx context.Context, max int) ([]Pending, error) {
	const query = `
	SELECT
		id, transaction_hash, sender_wallet_id, receiver_wallet_id,
		amount, fee, note, signature, timestamp, created_at
	FROM
		pending_transactions
	ORDER BY
		timestamp ASC, id ASC
	LIMIT $1`

	rows, err := c.db.QueryContext(ctx, query, max)
	if err != nil {
		return nil, fmt.Errorf("selecting pending batch: %w", err)
	}
	defer rows.Close()

	return collectPending(rows)
}

// Expired returns the pending transactions submitted before the cutoff.
func (c *Core) Expired(ctx context.Context, cutoff time.Time) ([]Pending, error) {
	const query = `
	SELECT
		id, transaction_hash, sender_wallet_id, receiver_wallet_id,
		amount, fee, note, signature, timestamp, created_at
	FROM
		pending_transactions
	WHERE
		created_at < $1
	ORDER BY
		created_at ASC, id ASC`

	rows, err := c.db.QueryContext(ctx, query, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("selecting expired pending: %w", err)
	}
	defer rows.Close()

	return collectPending(rows)
}

// List returns every pending transaction, oldest first.
func (c *Core) List(ctx context.Context) ([]Pending, error) {
	const query = `
	SELECT
		id, transaction_hash, sender_wallet_id, receiver_wallet_id,
		amount, fee, note, signature, timestamp, created_at
	FROM
		pending_transactions
	ORDER BY
		timestamp ASC, id ASC`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("selecting pending transactions: %w", err)
	}
	defer rows.Close()

	return collectPending(rows)
}

// QueryByWallet returns the pending transactions the wallet sent or is
// receiving, oldest first.
func (c *Core) QueryByWallet(ctx context.Context, walletID string) ([]Pending, error) {
	const query = `
	SELECT
		id, transaction_hash, sender_wallet_id, receiver_wallet_id,
		amount, fee, note, signature, timestamp, created_at
	FROM
		pending_transactions
	WHERE
		sender_wallet_id = $1 OR receiver_wallet_id = $1
	ORDER BY
		timestamp ASC, id ASC`

	rows, err := c.db.QueryContext(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("selecting wallet pending transactions: %w", err)
	}
	defer rows.Close()

	return collectPending(rows)
}

// Remove deletes a single pending transaction.
func (c *Core) Remove(ctx context.Context, q database.Querier, id string) error {
	const query = `
	DELETE FROM pending_transactions
	WHERE id = $1`

	if _, err := q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deleting pending transaction: %w", err)
	}

	return nil
}

// RemoveBatch deletes the specified pending transactions.
func (c *Core) RemoveBatch(ctx context.Context, q database.Querier, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, id)
	}

	query := fmt.Sprintf(`
	DELETE FROM pending_transactions
	WHERE id IN (%s)`, strings.Join(placeholders, ", "))

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting pending batch: %w", err)
	}

	return nil
}

// =============================================================================

func collectPending(rows *sql.Rows) ([]Pending, error) {
	var pending []Pending

	for rows.Next() {
		var (
			p         Pending
			amount    decimal.Decimal
			fee       decimal.Decimal
			createdAt int64
		)

		err := rows.Scan(&p.ID, &p.TxHash, &p.SenderID, &p.ReceiverID,
			&amount, &fee, &p.Note, &p.Signature, &p.Timestamp, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning pending transaction: %w", err)
		}

		p.Amount = amount
		p.Fee = fee
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending transactions: %w", err)
	}

	return pending, nil
}
