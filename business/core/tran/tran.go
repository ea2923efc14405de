// Package tran implements transaction admission: the validation
// pipeline that takes a signed transfer, reserves the sender's funds
// and parks the transaction in the mempool for the next block.
package tran

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/signature"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Set of error variables for admission failures.
var (
	ErrValidation    = errors.New("validation failed")
	ErrIdentity      = errors.New("public key does not match sender wallet")
	ErrSignature     = errors.New("signature verification failed")
	ErrDuplicateTx   = errors.New("transaction hash already known")
	ErrUnknownWallet = errors.New("unknown wallet")
)

// StatusPending is the admission status of an accepted transaction.
const StatusPending = "PENDING"

// reserveAttempts bounds how often a lost reservation race is retried
// before the conflict is surfaced to the caller.
const reserveAttempts = 3

// SubmitTx is the full admission input: a transfer already signed by
// the sender's key.
type SubmitTx struct {
	SenderID   string
	ReceiverID string
	Amount     decimal.Decimal
	Note       string
	Signature  string
	Timestamp  int64
	PublicKey  string
}

// Receipt reports an accepted transaction back to the caller.
type Receipt struct {
	TxHash    string
	PendingID string
	Status    string
	Fee       decimal.Decimal
	Timestamp int64
}

// Core manages the transaction admission pipeline.
type Core struct {
	log     *zap.SugaredLogger
	db      *database.DB
	utxo    *utxo.Core
	mempool *mempool.Core
	chain   *chain.Core
	wallet  *wallet.Core
	fee     decimal.Decimal
	skew    time.Duration
}

// Config holds the cores and tuning admission depends on.
type Config struct {
	Log     *zap.SugaredLogger
	DB      *database.DB
	UTXO    *utxo.Core
	Mempool *mempool.Core
	Chain   *chain.Core
	Wallet  *wallet.Core
	Fee     decimal.Decimal
	Skew    time.Duration
}

// New constructs a core for transaction admission.
func New(cfg Config) *Core {
	return &Core{
		log:     cfg.Log,
		db:      cfg.DB,
		utxo:    cfg.UTXO,
		mempool: cfg.Mempool,
		chain:   cfg.Chain,
		wallet:  cfg.Wallet,
		fee:     cfg.Fee,
		skew:    cfg.Skew,
	}
}

// Fee reports the configured flat fee applied to every transfer.
func (c *Core) Fee() decimal.Decimal {
	return c.fee
}

// BuildSigned constructs a fully signed submission on behalf of the
// sender using the custodied key. The fee participates in the signed
// hash, so the caller passes the fee the submission will carry. The
// decrypted key never leaves this call.
func (c *Core) BuildSigned(ctx context.Context, senderID string, receiverID string, amount decimal.Decimal, fee decimal.Decimal, note string, now time.Time) (SubmitTx, error) {
	w, err := c.wallet.QueryByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return SubmitTx{}, ErrUnknownWallet
		}
		return SubmitTx{}, err
	}

	priv, err := c.wallet.PrivateKey(ctx, senderID)
	if err != nil {
		return SubmitTx{}, err
	}

	ts := now.Unix()
	txHash := signature.TxHash(senderID, receiverID, amount, fee, ts, note)

	sig, err := signature.Sign(priv, txHash)
	if err != nil {
		return SubmitTx{}, fmt.Errorf("signing transaction: %w", err)
	}

	return SubmitTx{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Note:       note,
		Signature:  sig,
		Timestamp:  ts,
		PublicKey:  w.PublicKey,
	}, nil
}

// Submit runs the admission pipeline with the configured fee.
func (c *Core) Submit(ctx context.Context, st SubmitTx, now time.Time) (Receipt, error) {
	return c.submit(ctx, st, c.fee, now)
}

// SubmitSystem runs the admission pipeline with no fee. It serves
// transfers the service itself initiates, such as zakat deductions,
// which are still signed with the owner's custodied key.
func (c *Core) SubmitSystem(ctx context.Context, st SubmitTx, now time.Time) (Receipt, error) {
	return c.submit(ctx, st, decimal.Zero, now)
}

// submit validates the transfer, reserves the sender's outputs and
// persists the pending row. The pipeline stops at the first failure.
func (c *Core) submit(ctx context.Context, st SubmitTx, fee decimal.Decimal, now time.Time) (Receipt, error) {

	// Shape validation.
	switch {
	case !st.Amount.IsPositive():
		return Receipt{}, fmt.Errorf("amount must be positive: %w", ErrValidation)
	case st.Amount.Exponent() < -money.Places:
		return Receipt{}, fmt.Errorf("amount exceeds %d decimal places: %w", money.Places, ErrValidation)
	case st.SenderID == st.ReceiverID:
		return Receipt{}, fmt.Errorf("sender and receiver are the same wallet: %w", ErrValidation)
	}

	drift := now.Unix() - st.Timestamp
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(c.skew.Seconds()) {
		return Receipt{}, fmt.Errorf("timestamp outside tolerance: %w", ErrValidation)
	}

	for _, id := range []string{st.SenderID, st.ReceiverID} {
		exists, err := c.wallet.Exists(ctx, id)
		if err != nil {
			return Receipt{}, err
		}
		if !exists {
			return Receipt{}, fmt.Errorf("wallet %s: %w", id, ErrUnknownWallet)
		}
	}

	// Identity check: the submitted key must derive the sender wallet.
	if signature.WalletID(st.PublicKey) != st.SenderID {
		return Receipt{}, ErrIdentity
	}

	// Signature check over the canonical transaction hash.
	txHash := signature.TxHash(st.SenderID, st.ReceiverID, st.Amount, fee, st.Timestamp, st.Note)
	if err := signature.Verify(st.PublicKey, txHash, st.Signature); err != nil {
		return Receipt{}, ErrSignature
	}

	// Hash uniqueness across the mempool and the settled chain.
	settled, err := c.chain.ContainsTxHash(ctx, txHash)
	if err != nil {
		return Receipt{}, err
	}
	if settled {
		return Receipt{}, ErrDuplicateTx
	}

	pending, err := c.mempool.Contains(ctx, txHash)
	if err != nil {
		return Receipt{}, err
	}
	if pending {
		return Receipt{}, ErrDuplicateTx
	}

	// Reserve inputs and persist the pending row in one transaction.
	// A lost reservation race is retried with a brief backoff against
	// whatever outputs remain.
	required := st.Amount.Add(fee)

	for attempt := 1; ; attempt++ {
		pendingID := uuid.NewString()

		err := c.reserveAndPersist(ctx, st, fee, txHash, pendingID, required, now)
		if err == nil {
			c.log.Infow("transaction admitted", "txhash", txHash, "sender", st.SenderID,
				"receiver", st.ReceiverID, "amount", money.Format(st.Amount))

			return Receipt{
				TxHash:    txHash,
				PendingID: pendingID,
				Status:    StatusPending,
				Fee:       fee,
				Timestamp: st.Timestamp,
			}, nil
		}

		if !errors.Is(err, utxo.ErrConflict) && !database.IsBusy(err) {
			return Receipt{}, err
		}
		if attempt == reserveAttempts {
			return Receipt{}, utxo.ErrConflict
		}

		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
}

func (c *Core) reserveAndPersist(ctx context.Context, st SubmitTx, fee decimal.Decimal, txHash string, pendingID string, required decimal.Decimal, now time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning admission transaction: %w", err)
	}
	defer tx.Rollback()

	// The pending row goes in first so reserved outputs can reference it.
	p := mempool.Pending{
		ID:         pendingID,
		TxHash:     txHash,
		SenderID:   st.SenderID,
		ReceiverID: st.ReceiverID,
		Amount:     st.Amount,
		Fee:        fee,
		Note:       st.Note,
		Signature:  st.Signature,
		Timestamp:  st.Timestamp,
		CreatedAt:  now,
	}
	if err := c.mempool.Insert(ctx, tx, p); err != nil {
		if errors.Is(err, mempool.ErrDuplicateTx) {
			return ErrDuplicateTx
		}
		return err
	}

	if _, err := c.utxo.Reserve(ctx, tx, st.SenderID, required, pendingID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing admission transaction: %w", err)
	}

	return nil
}
