package walletgrp

import (
	"time"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/shopspring/decimal"
)

// AppWallet is the public view of a wallet. Key material stays private.
type AppWallet struct {
	WalletID  string `json:"wallet_id"`
	PublicKey string `json:"public_key"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

func toAppWallet(wlt wallet.Wallet, balance decimal.Decimal) AppWallet {
	return AppWallet{
		WalletID:  wlt.WalletID,
		PublicKey: wlt.PublicKey,
		Balance:   money.Format(balance),
		CreatedAt: wlt.CreatedAt.Format(time.RFC3339),
	}
}

// AppBalance is the on-demand spendable balance.
type AppBalance struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
}

func toAppBalance(walletID string, balance decimal.Decimal) AppBalance {
	return AppBalance{
		WalletID: walletID,
		Balance:  money.Format(balance),
	}
}

// AppUTXO is one unspent output.
type AppUTXO struct {
	ID          int64  `json:"id"`
	WalletID    string `json:"wallet_id"`
	Amount      string `json:"amount"`
	TxHash      string `json:"transaction_hash"`
	OutputIndex int    `json:"output_index"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

func toAppUTXOs(utxos []utxo.UTXO) []AppUTXO {
	items := make([]AppUTXO, len(utxos))
	for i, u := range utxos {
		items[i] = AppUTXO{
			ID:          u.ID,
			WalletID:    u.WalletID,
			Amount:      money.Format(u.Amount),
			TxHash:      u.TxHash,
			OutputIndex: u.OutputIndex,
			Status:      u.Status(),
			CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		}
	}
	return items
}

// AppEntry is one row of merged wallet history.
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

func toAppEntries(entries []ledger.Entry) []AppEntry {
	items := make([]AppEntry, len(entries))
	for i, e := range entries {
		items[i] = AppEntry{
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
	return items
}
