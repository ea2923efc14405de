// Package chain provides access to the settled blockchain: mined block
// headers, the transactions inside them, and the monetary counters that
// drive the block subsidy.
package chain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Set of error variables for chain access.
var (
	ErrNotFound = errors.New("not found")
	ErrStaleTip = errors.New("chain tip moved")
)

// Set of transaction types recorded in the settled chain.
const (
	TypeTransfer = "TRANSFER"
	TypeCoinbase = "COINBASE"
	TypeZakat    = "ZAKAT"
)

// Block represents a mined block header.
type Block struct {
	Index        int64
	Timestamp    int64
	PreviousHash string
	Hash         string
	Nonce        int64
	MerkleRoot   string
}

// Tx represents a settled transaction inside a mined block.
type Tx struct {
	ID         int64
	TxHash     string
	SenderID   string
	ReceiverID string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	Note       string
	Signature  string
	BlockIndex int64
	TxType     string
	Timestamp  int64
	CreatedAt  time.Time
}

// Core manages the set of APIs for chain access.
type Core struct {
	log *zap.SugaredLogger
	db  *database.DB
}

// New constructs a core for chain api access.
func New(log *zap.SugaredLogger, db *database.DB) *Core {
	return &Core{
		log: log,
		db:  db,
	}
}

// InsertBlock appends a mined block header. The block index is the
// primary key, so losing a race for the next index reports ErrStaleTip.
func (c *Core) InsertBlock(ctx context.Context, q database.Querier, b Block) error {
	const query = `
	INSERT INTO blocks
		("index", timestamp, previous_hash, hash, nonce, merkle_root)
	VALUES
		($1, $2, $3, $4, $5, $6)`

	_, err := q.ExecContext(ctx, query, b.Index, b.Timestamp, b.PreviousHash, b.Hash, b.Nonce, b.MerkleRoot)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrStaleTip
		}
		return fmt.Errorf("inserting block %d: %w", b.Index, err)
	}

	return nil
}

// InsertTx records a settled transaction inside a block.
func (c *Core) InsertTx(ctx context.Context, q database.Querier, tx Tx) error {
	const query = `
	INSERT INTO transactions
		(transaction_hash, sender_wallet_id, receiver_wallet_id, amount, fee, note, signature, block_index, transaction_type, timestamp, created_at)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := q.ExecContext(ctx, query, tx.TxHash, tx.SenderID, tx.ReceiverID,
		tx.Amount.String(), tx.Fee.String(), tx.Note, tx.Signature, tx.BlockIndex,
		tx.TxType, tx.Timestamp, tx.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("inserting transaction %s: %w", tx.TxHash, err)
	}

	return nil
}

// Tip returns the block with the highest index. ErrNotFound reports an
// empty chain, which only happens before the genesis block is written.
func (c *Core) Tip(ctx context.Context) (Block, error) {
	return c.TipTx(ctx, c.db)
}

// TipTx returns the tip through the caller's querier so the miner can
// re-check freshness inside its commit transaction.
func (c *Core) TipTx(ctx context.Context, q database.Querier) (Block, error) {
	const query = `
	SELECT "index", timestamp, previous_hash, hash, nonce, merkle_root
	FROM blocks
	ORDER BY "index" DESC
	LIMIT 1`

	b, err := scanBlock(q.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Block{}, ErrNotFound
		}
		return Block{}, fmt.Errorf("selecting tip: %w", err)
	}

	return b, nil
}

// QueryBlockByIndex returns the block at the specified height.
func (c *Core) QueryBlockByIndex(ctx context.Context, index int64) (Block, error) {
	const query = `
	SELECT "index", timestamp, previous_hash, hash, nonce, merkle_root
	FROM blocks
	WHERE "index" = $1`

	b, err := scanBlock(c.db.QueryRowContext(ctx, query, index))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Block{}, ErrNotFound
		}
		return Block{}, fmt.Errorf("selecting block %d: %w", index, err)
	}

	return b, nil
}

// QueryBlockByHash returns the block with the specified hash.
func (c *Core) QueryBlockByHash(ctx context.Context, hash string) (Block, error) {
	const query = `
	SELECT "index", timestamp, previous_hash, hash, nonce, merkle_root
	FROM blocks
	WHERE hash = $1`

	b, err := scanBlock(c.db.QueryRowContext(ctx, query, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Block{}, ErrNotFound
		}
		return Block{}, fmt.Errorf("selecting block %s: %w", hash, err)
	}

	return b, nil
}

// QueryBlocks returns a page of blocks, newest first.
func (c *Core) QueryBlocks(ctx context.Context, page int, rowsPerPage int) ([]Block, error) {
	const query = `
	SELECT "index", timestamp, previous_hash, hash, nonce, merkle_root
	FROM blocks
	ORDER BY "index" DESC
	LIMIT $1 OFFSET $2`

	offset := (page - 1) * rowsPerPage

	rows, err := c.db.QueryContext(ctx, query, rowsPerPage, offset)
	if err != nil {
		return nil, fmt.Errorf("selecting blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating blocks: %w", err)
	}

	return blocks, nil
}

// BlockCount reports the number of mined blocks including genesis.
func (c *Core) BlockCount(ctx context.Context) (int64, error) {
	const query = `
	SELECT COUNT(1)
	FROM blocks`

	var count int64
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting blocks: %w", err)
	}

	return count, nil
}

// QueryTxByHash returns the settled transaction with the specified hash.
func (c *Core) QueryTxByHash(ctx context.Context, txHash string) (Tx, error) {
	const query = `
	SELECT
		id, transaction_hash, sender_wallet_id, receiver_wallet_id,
		amount, fee, note, signature, block_index, transaction_type, timestamp, created_at
	FROM
		transactions
	WHERE
		transaction_hash = $1`

	tx, err := scanTx(c.db.QueryRowContext(ctx, query, txHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tx{}, ErrNotFound
		}
		return Tx{}, fmt.Errorf("selecting transaction %s: %w", txHash, err)
	}

	return tx, nil
}

// QueryTxsByBlock returns the transactions inside a block in the order
// they were committed.
func (c *Core) QueryTxsByBlock(ctx context.Context, index int64) ([]Tx, error) {
	const query = `
	SELECT
		id, transaction_hash, sender_wallet_id, receiver_wallet_id,
		amount, fee, note, signature, block_index, transaction_type, timestamp, created_at
	FROM
		transactions
	WHERE
		block_index = $1
	ORDER BY
		id ASC`

	rows, err := c.db.QueryContext(ctx, query, index)
	if err != nil {
		return nil, fmt.Errorf("selecting block transactions: %w", err)
	}
	defer rows.Close()

	return collectTxs(rows)
}

// QueryTxsByWallet returns a page of the wallet's settled transactions,
// newest first, whether the wallet sent or received.
func (c *Core) QueryTxsByWallet(ctx context.Context, walletID string, page int, rowsPerPage int) ([]Tx, error) {
	const query = `
	SELECT
		id, transaction_hash, sender_wallet_id, receiver_wallet_id,
		amount, fee, note, signature, block_index, transaction_type, timestamp, created_at
	FROM
		transactions
	WHERE
		sender_wallet_id = $1 OR receiver_wallet_id = $1
	ORDER BY
		timestamp DESC, id DESC
	LIMIT $2 OFFSET $3`

	offset := (page - 1) * rowsPerPage

	rows, err := c.db.QueryContext(ctx, query, walletID, rowsPerPage, offset)
	if err != nil {
		return nil, fmt.Errorf("selecting wallet transactions: %w", err)
	}
	defer rows.Close()

	return collectTxs(rows)
}

// TxCount reports the number of settled transactions.
func (c *Core) TxCount(ctx context.Context) (int64, error) {
	const query = `
	SELECT COUNT(1)
	FROM transactions`

	var count int64
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}

	return count, nil
}

// ContainsTxHash reports whether a transaction hash is already settled.
func (c *Core) ContainsTxHash(ctx context.Context, txHash string) (bool, error) {
	const query = `
	SELECT COUNT(1)
	FROM transactions
	WHERE transaction_hash = $1`

	var count int
	if err := c.db.QueryRowContext(ctx, query, txHash).Scan(&count); err != nil {
		return false, fmt.Errorf("checking settled transaction: %w", err)
	}

	return count > 0, nil
}

// =============================================================================

// scanner is the subset of sql.Rows and sql.Row needed to read one row.
type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(s scanner) (Block, error) {
	var b Block
	err := s.Scan(&b.Index, &b.Timestamp, &b.PreviousHash, &b.Hash, &b.Nonce, &b.MerkleRoot)
	if err != nil {
		return Block{}, err
	}
	return b, nil
}

func scanTx(s scanner) (Tx, error) {
	var (
		tx        Tx
		amount    decimal.Decimal
		fee       decimal.Decimal
		createdAt int64
	)

	err := s.Scan(&tx.ID, &tx.TxHash, &tx.SenderID, &tx.ReceiverID,
		&amount, &fee, &tx.Note, &tx.Signature, &tx.BlockIndex, &tx.TxType, &tx.Timestamp, &createdAt)
	if err != nil {
		return Tx{}, err
	}

	tx.Amount = amount
	tx.Fee = fee
	tx.CreatedAt = time.Unix(createdAt, 0).UTC()
	return tx, nil
}

func collectTxs(rows *sql.Rows) ([]Tx, error) {
	var txs []Tx

	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}
