package trangrp

import (
	"fmt"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/business/core/tran"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/validate"
)

// AppNewTransaction is what a caller provides to submit a transfer. The
// sender is implied by the bearer token; when stated it must match.
type AppNewTransaction struct {
	SenderWalletID    string `json:"sender_wallet_id" validate:"omitempty,len=64,hexadecimal"`
	RecipientWalletID string `json:"recipient_wallet_id" validate:"required,len=64,hexadecimal"`
	Amount            string `json:"amount" validate:"required"`
	Note              string `json:"note" validate:"max=256"`
}

// Validate checks the data in the model is considered clean.
func (app AppNewTransaction) Validate() error {
	if err := validate.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// AppReceipt is the admission response.
type AppReceipt struct {
	TxHash    string `json:"transaction_hash"`
	Status    string `json:"status"`
	Fee       string `json:"fee"`
	Timestamp int64  `json:"timestamp"`
}

func toAppReceipt(rcpt tran.Receipt) AppReceipt {
	return AppReceipt{
		TxHash:    rcpt.TxHash,
		Status:    rcpt.Status,
		Fee:       money.Format(rcpt.Fee),
		Timestamp: rcpt.Timestamp,
	}
}

// AppEntry is a transaction as exposed over the API, pending or settled.
type AppEntry struct {
	TxHash     string `json:"transaction_hash"`
	Sender     string `json:"sender_wallet_id"`
	Receiver   string `json:"receiver_wallet_id"`
	Amount     string `json:"amount"`
	Fee        string `json:"fee"`
	Note       string `json:"note,omitempty"`
	Type       string `json:"transaction_type"`
	Status     string `json:"status"`
	BlockIndex int64  `json:"block_index"`
	Timestamp  int64  `json:"timestamp"`
}

func toAppEntry(e ledger.Entry) AppEntry {
	return AppEntry{
		TxHash:     e.TxHash,
		Sender:     e.SenderID,
		Receiver:   e.ReceiverID,
		Amount:     money.Format(e.Amount),
		Fee:        money.Format(e.Fee),
		Note:       e.Note,
		Type:       e.TxType,
		Status:     e.Status,
		BlockIndex: e.BlockIndex,
		Timestamp:  e.Timestamp,
	}
}

// AppPendingTx is one mempool row in mining order.
type AppPendingTx struct {
	TxHash    string `json:"transaction_hash"`
	Sender    string `json:"sender_wallet_id"`
	Receiver  string `json:"receiver_wallet_id"`
	Amount    string `json:"amount"`
	Fee       string `json:"fee"`
	Note      string `json:"note,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func toAppPending(pending []mempool.Pending) []AppPendingTx {
	items := make([]AppPendingTx, len(pending))
	for i, p := range pending {
		items[i] = AppPendingTx{
			TxHash:    p.TxHash,
			Sender:    p.SenderID,
			Receiver:  p.ReceiverID,
			Amount:    money.Format(p.Amount),
			Fee:       money.Format(p.Fee),
			Note:      p.Note,
			Timestamp: p.Timestamp,
		}
	}
	return items
}
