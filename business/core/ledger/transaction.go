package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/logs"
	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/business/core/tran"
	"github.com/dinarlabs/ledger/foundation/events"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/shopspring/decimal"
)

// Set of statuses a history entry can carry.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
)

// Entry is one row in a wallet's transaction history, pending or settled.
type Entry struct {
	TxHash     string
	SenderID   string
	ReceiverID string
	Amount     decimal.Decimal
	Fee        decimal.Decimal
	Note       string
	TxType     string
	Status     string
	BlockIndex int64
	Timestamp  int64
}

// CreateTransaction signs and submits a transfer from the user's wallet.
// The service custodies the key, so the signature is produced here on the
// user's behalf.
func (c *Core) CreateTransaction(ctx context.Context, userID string, receiverID string, amount decimal.Decimal, note string, ip string, userAgent string) (tran.Receipt, error) {
	now := time.Now().UTC()

	wlt, err := c.wallet.QueryByUser(ctx, userID)
	if err != nil {
		return tran.Receipt{}, err
	}

	st, err := c.tran.BuildSigned(ctx, wlt.WalletID, receiverID, amount, c.tran.Fee(), note, now)
	if err != nil {
		return tran.Receipt{}, err
	}

	rcpt, err := c.tran.Submit(ctx, st, now)
	if err != nil {
		c.logs.RecordTransaction(ctx, logs.TranLog{
			WalletID:  wlt.WalletID,
			Action:    "SUBMIT",
			Status:    logs.StatusFailed,
			IP:        ip,
			UserAgent: userAgent,
			Note:      err.Error(),
		})
		return tran.Receipt{}, err
	}

	c.logs.RecordTransaction(ctx, logs.TranLog{
		WalletID:  wlt.WalletID,
		Action:    "SUBMIT",
		TxHash:    rcpt.TxHash,
		Status:    logs.StatusSuccess,
		IP:        ip,
		UserAgent: userAgent,
	})

	c.send(events.KindTxAdmitted, "tx %s admitted: %s -> %s amount[%s]",
		rcpt.TxHash, wlt.WalletID, receiverID, money.Format(amount))

	return rcpt, nil
}

// TxByHash looks a transaction up in the settled chain first and falls
// back to the mempool. chain.ErrNotFound is returned when neither side
// knows the hash.
func (c *Core) TxByHash(ctx context.Context, txHash string) (Entry, error) {
	tx, err := c.chain.QueryTxByHash(ctx, txHash)
	if err == nil {
		return settledEntry(tx), nil
	}
	if !errors.Is(err, chain.ErrNotFound) {
		return Entry{}, err
	}

	p, err := c.mempool.QueryByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, mempool.ErrNotFound) {
			return Entry{}, chain.ErrNotFound
		}
		return Entry{}, err
	}

	return pendingEntry(p), nil
}

// PendingTransactions returns the mempool in mining order.
func (c *Core) PendingTransactions(ctx context.Context) ([]mempool.Pending, error) {
	return c.mempool.List(ctx)
}

// History returns the wallet's merged activity, newest first: mempool
// entries still waiting plus a page of settled transactions.
func (c *Core) History(ctx context.Context, walletID string, page int, rowsPerPage int) ([]Entry, error) {
	if _, err := c.wallet.QueryByID(ctx, walletID); err != nil {
		return nil, err
	}

	pending, err := c.mempool.QueryByWallet(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("querying pending: %w", err)
	}

	settled, err := c.chain.QueryTxsByWallet(ctx, walletID, page, rowsPerPage)
	if err != nil {
		return nil, fmt.Errorf("querying settled: %w", err)
	}

	entries := make([]Entry, 0, len(pending)+len(settled))
	for _, p := range pending {
		entries = append(entries, pendingEntry(p))
	}
	for _, tx := range settled {
		entries = append(entries, settledEntry(tx))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp > entries[j].Timestamp
		}
		return entries[i].TxHash < entries[j].TxHash
	})

	return entries, nil
}

func pendingEntry(p mempool.Pending) Entry {
	return Entry{
		TxHash:     p.TxHash,
		SenderID:   p.SenderID,
		ReceiverID: p.ReceiverID,
		Amount:     p.Amount,
		Fee:        p.Fee,
		Note:       p.Note,
		TxType:     chain.TypeTransfer,
		Status:     StatusPending,
		BlockIndex: -1,
		Timestamp:  p.Timestamp,
	}
}

func settledEntry(tx chain.Tx) Entry {
	return Entry{
		TxHash:     tx.TxHash,
		SenderID:   tx.SenderID,
		ReceiverID: tx.ReceiverID,
		Amount:     tx.Amount,
		Fee:        tx.Fee,
		Note:       tx.Note,
		TxType:     tx.TxType,
		Status:     StatusConfirmed,
		BlockIndex: tx.BlockIndex,
		Timestamp:  tx.Timestamp,
	}
}
