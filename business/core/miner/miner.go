// Package miner implements proof-of-work block production. One mining
// round takes a snapshot of the mempool, searches for a nonce that
// satisfies the difficulty, and settles the block in a single database
// transaction: block header, transactions, output transitions, mempool
// removal and the monetary counters all commit or roll back together.
package miner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/merkle"
	"github.com/dinarlabs/ledger/foundation/signature"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Set of error variables for mining failures.
var (
	ErrEmptyMempool = errors.New("no pending transactions to mine")
	ErrMiningBusy   = errors.New("a mining round is already running")
	ErrInterrupted  = errors.New("mining interrupted by shutdown")
	ErrInvariant    = errors.New("ledger invariant violated")
)

// miningLockKey identifies the advisory lock that serializes mining
// across every process sharing the database.
const miningLockKey = 8333

// shutdownCheckMask sets how often the proof-of-work loop polls for
// cancellation: every 2^16 nonces.
const shutdownCheckMask = 1<<16 - 1

// commitAttempts bounds internal retries of the commit transaction when
// the database reports transient contention.
const commitAttempts = 3

// MinedBlock reports a successful mining round.
type MinedBlock struct {
	Block    chain.Block
	TxCount  int
	Attempts int64
	Elapsed  time.Duration
}

// Core manages block production.
type Core struct {
	log         *zap.SugaredLogger
	db          *database.DB
	utxo        *utxo.Core
	mempool     *mempool.Core
	chain       *chain.Core
	wallet      *wallet.Core
	maxBatch    int
	zakatWallet string
	shut        atomic.Bool
	mu          sync.Mutex
}

// Config holds the cores and tuning block production depends on.
type Config struct {
	Log         *zap.SugaredLogger
	DB          *database.DB
	UTXO        *utxo.Core
	Mempool     *mempool.Core
	Chain       *chain.Core
	Wallet      *wallet.Core
	MaxBatch    int
	ZakatWallet string
}

// New constructs a core for block production.
func New(cfg Config) *Core {
	return &Core{
		log:         cfg.Log,
		db:          cfg.DB,
		utxo:        cfg.UTXO,
		mempool:     cfg.Mempool,
		chain:       cfg.Chain,
		wallet:      cfg.Wallet,
		maxBatch:    cfg.MaxBatch,
		zakatWallet: cfg.ZakatWallet,
	}
}

// Shutdown asks an in-flight proof-of-work search to stop. The search
// polls the flag every 2^16 nonces and exits without committing.
func (c *Core) Shutdown() {
	c.shut.Store(true)
}

// Mine produces the next block and credits the coinbase to the miner
// wallet. At most one round runs at a time across the deployment;
// concurrent calls fail fast with ErrMiningBusy.
func (c *Core) Mine(ctx context.Context, minerWallet string) (MinedBlock, error) {
	release, err := c.acquireLock(ctx)
	if err != nil {
		return MinedBlock{}, err
	}
	defer release()

	started := time.Now()

	tip, err := c.chain.Tip(ctx)
	if err != nil {
		return MinedBlock{}, fmt.Errorf("reading tip: %w", err)
	}

	meta, err := c.chain.Meta(ctx)
	if err != nil {
		return MinedBlock{}, fmt.Errorf("reading chain meta: %w", err)
	}

	batch, err := c.mempool.Batch(ctx, c.maxBatch)
	if err != nil {
		return MinedBlock{}, fmt.Errorf("reading mempool batch: %w", err)
	}
	if len(batch) == 0 {
		return MinedBlock{}, ErrEmptyMempool
	}

	// The subsidy stops once the supply cap is reached; fees always pay
	// out in full.
	subsidy := meta.CurrentReward
	if remaining := chain.MaxSupply.Sub(meta.CirculatingCoins); remaining.LessThan(subsidy) {
		subsidy = remaining
		if subsidy.IsNegative() {
			subsidy = decimal.Zero
		}
	}

	totalFees := decimal.Zero
	for _, p := range batch {
		totalFees = totalFees.Add(p.Fee)
	}
	coinbaseAmount := subsidy.Add(totalFees)

	blockIndex := tip.Index + 1
	blockTime := time.Now().UTC().Unix()
	coinbaseHash := signature.CoinbaseHash(blockIndex, minerWallet, coinbaseAmount, blockTime)

	hashes := make([]string, 0, len(batch)+1)
	hashes = append(hashes, coinbaseHash)
	for _, p := range batch {
		hashes = append(hashes, p.TxHash)
	}
	merkleRoot := merkle.Root(hashes)

	nonce, blockHash, err := c.proofOfWork(ctx, blockIndex, blockTime, tip.Hash, merkleRoot, meta.Difficulty)
	if err != nil {
		return MinedBlock{}, err
	}

	block := chain.Block{
		Index:        blockIndex,
		Timestamp:    blockTime,
		PreviousHash: tip.Hash,
		Hash:         blockHash,
		Nonce:        nonce,
		MerkleRoot:   merkleRoot,
	}

	for attempt := 1; ; attempt++ {
		err := c.commit(ctx, tip, meta, batch, block, minerWallet, coinbaseHash, coinbaseAmount, subsidy)
		if err == nil {
			break
		}

		if !database.IsBusy(err) || attempt == commitAttempts {
			return MinedBlock{}, err
		}

		select {
		case <-ctx.Done():
			return MinedBlock{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}

	elapsed := time.Since(started)
	c.log.Infow("block mined", "index", block.Index, "hash", block.Hash,
		"txs", len(batch)+1, "nonce", nonce, "elapsed", elapsed)

	return MinedBlock{
		Block:    block,
		TxCount:  len(batch) + 1,
		Attempts: nonce + 1,
		Elapsed:  elapsed,
	}, nil
}

// proofOfWork searches for a nonce whose block hash satisfies the
// difficulty. The loop is single-threaded and checks for cancellation
// every 2^16 nonces.
func (c *Core) proofOfWork(ctx context.Context, index int64, timestamp int64, previousHash string, merkleRoot string, difficulty int) (int64, string, error) {
	for nonce := int64(0); ; nonce++ {
		if nonce&shutdownCheckMask == 0 {
			if c.shut.Load() {
				return 0, "", ErrInterrupted
			}
			select {
			case <-ctx.Done():
				return 0, "", ctx.Err()
			default:
			}
		}

		hash := signature.BlockHash(index, timestamp, previousHash, merkleRoot, nonce)
		if signature.IsHashSolved(difficulty, hash) {
			return nonce, hash, nil
		}
	}
}

// commit settles the mined block atomically. On any failure the whole
// transaction rolls back: the mempool rows and their reservations
// survive for the next attempt.
func (c *Core) commit(ctx context.Context, tip chain.Block, meta chain.Meta, batch []mempool.Pending, block chain.Block, minerWallet string, coinbaseHash string, coinbaseAmount decimal.Decimal, subsidy decimal.Decimal) error {
	now := time.Now().UTC()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer tx.Rollback()

	// The proof-of-work was computed against a specific tip. If another
	// block landed since, this block no longer extends the chain.
	cur, err := c.chain.TipTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("re-reading tip: %w", err)
	}
	if cur.Index != tip.Index || cur.Hash != tip.Hash {
		return chain.ErrStaleTip
	}

	if err := c.chain.InsertBlock(ctx, tx, block); err != nil {
		return err
	}

	// Coinbase first so the stored order matches the merkle input order.
	coinbase := chain.Tx{
		TxHash:     coinbaseHash,
		SenderID:   "",
		ReceiverID: minerWallet,
		Amount:     coinbaseAmount,
		Fee:        decimal.Zero,
		TxType:     chain.TypeCoinbase,
		BlockIndex: block.Index,
		Timestamp:  block.Timestamp,
		CreatedAt:  now,
	}
	if err := c.chain.InsertTx(ctx, tx, coinbase); err != nil {
		return err
	}

	touched := map[string]bool{minerWallet: true}

	for _, p := range batch {
		reserved, err := c.utxo.QueryReserved(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if len(reserved) == 0 {
			return fmt.Errorf("pending %s has no reserved inputs: %w", p.ID, ErrInvariant)
		}

		inputSum := decimal.Zero
		for _, u := range reserved {
			inputSum = inputSum.Add(u.Amount)
		}

		required := p.Amount.Add(p.Fee)
		if inputSum.LessThan(required) {
			return fmt.Errorf("pending %s inputs below amount plus fee: %w", p.ID, ErrInvariant)
		}

		if _, err := c.utxo.Spend(ctx, tx, p.ID, p.TxHash, now); err != nil {
			return err
		}

		txType := chain.TypeTransfer
		if c.zakatWallet != "" && p.ReceiverID == c.zakatWallet {
			txType = chain.TypeZakat
		}

		settled := chain.Tx{
			TxHash:     p.TxHash,
			SenderID:   p.SenderID,
			ReceiverID: p.ReceiverID,
			Amount:     p.Amount,
			Fee:        p.Fee,
			Note:       p.Note,
			Signature:  p.Signature,
			TxType:     txType,
			BlockIndex: block.Index,
			Timestamp:  p.Timestamp,
			CreatedAt:  now,
		}
		if err := c.chain.InsertTx(ctx, tx, settled); err != nil {
			return err
		}

		receiverOut := utxo.NewUTXO{
			WalletID:    p.ReceiverID,
			Amount:      p.Amount,
			TxHash:      p.TxHash,
			OutputIndex: 0,
		}
		if err := c.utxo.Create(ctx, tx, receiverOut, now); err != nil {
			return err
		}

		if change := inputSum.Sub(required); change.IsPositive() {
			changeOut := utxo.NewUTXO{
				WalletID:    p.SenderID,
				Amount:      change,
				TxHash:      p.TxHash,
				OutputIndex: 1,
			}
			if err := c.utxo.Create(ctx, tx, changeOut, now); err != nil {
				return err
			}
		}

		touched[p.SenderID] = true
		touched[p.ReceiverID] = true
	}

	if coinbaseAmount.IsPositive() {
		coinbaseOut := utxo.NewUTXO{
			WalletID:    minerWallet,
			Amount:      coinbaseAmount,
			TxHash:      coinbaseHash,
			OutputIndex: 0,
		}
		if err := c.utxo.Create(ctx, tx, coinbaseOut, now); err != nil {
			return err
		}
	}

	ids := make([]string, len(batch))
	for i, p := range batch {
		ids[i] = p.ID
	}
	if err := c.mempool.RemoveBatch(ctx, tx, ids); err != nil {
		return err
	}

	m, err := c.chain.MetaForUpdate(ctx, tx)
	if err != nil {
		return err
	}
	m.Height++
	m.CirculatingCoins = m.CirculatingCoins.Add(subsidy)
	if m.HalvingInterval > 0 && m.Height%m.HalvingInterval == 0 {
		m.CurrentReward = chain.HalveReward(m.CurrentReward)
	}
	m.UpdatedAt = now

	if err := c.chain.UpdateMeta(ctx, tx, m); err != nil {
		return err
	}

	for w := range touched {
		if w == "" {
			continue
		}
		balance, err := c.utxo.SumUnspent(ctx, tx, w)
		if err != nil {
			return err
		}
		if err := c.wallet.SetBalanceCache(ctx, tx, w, balance, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing block %d: %w", block.Index, err)
	}

	return nil
}

// acquireLock serializes mining. PostgreSQL deployments take a session
// advisory lock on a pinned connection so the exclusion spans every
// process; SQLite deployments are single-process and use an in-process
// mutex.
func (c *Core) acquireLock(ctx context.Context) (func(), error) {
	if c.db.Engine != database.EnginePostgres {
		if !c.mu.TryLock() {
			return nil, ErrMiningBusy
		}
		return c.mu.Unlock, nil
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pinning connection for mining lock: %w", err)
	}

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", miningLockKey).Scan(&locked); err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquiring mining lock: %w", err)
	}
	if !locked {
		conn.Close()
		return nil, ErrMiningBusy
	}

	release := func() {
		// Unlock on a fresh context so shutdown does not leak the lock.
		if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", miningLockKey); err != nil {
			c.log.Errorw("releasing mining lock", "ERROR", err)
		}
		conn.Close()
	}

	return release, nil
}
