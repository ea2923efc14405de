package chaingrp

import (
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/foundation/money"
)

// AppInfo is the chain summary returned to clients.
type AppInfo struct {
	Height           int64  `json:"height"`
	LatestHash       string `json:"latest_hash"`
	Difficulty       int    `json:"difficulty"`
	CurrentReward    string `json:"current_reward"`
	HalvingInterval  int64  `json:"halving_interval"`
	CirculatingCoins string `json:"circulating_coins"`
	MaxSupply        string `json:"max_supply"`
	PendingCount     int    `json:"pending_count"`
}

func toAppInfo(info ledger.ChainInfo) AppInfo {
	return AppInfo{
		Height:           info.Height,
		LatestHash:       info.LatestHash,
		Difficulty:       info.Difficulty,
		CurrentReward:    money.Format(info.CurrentReward),
		HalvingInterval:  info.HalvingInterval,
		CirculatingCoins: money.Format(info.CirculatingCoins),
		MaxSupply:        money.Format(info.MaxSupply),
		PendingCount:     info.Pending,
	}
}

// AppBlock is a mined block header returned to clients.
type AppBlock struct {
	Index        int64  `json:"index"`
	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash"`
	MerkleRoot   string `json:"merkle_root"`
	Nonce        int64  `json:"nonce"`
	Timestamp    string `json:"timestamp"`
}

func toAppBlock(b chain.Block) AppBlock {
	return AppBlock{
		Index:        b.Index,
		Hash:         b.Hash,
		PreviousHash: b.PreviousHash,
		MerkleRoot:   b.MerkleRoot,
		Nonce:        b.Nonce,
		Timestamp:    time.Unix(b.Timestamp, 0).UTC().Format(time.RFC3339),
	}
}

func toAppBlocks(blocks []chain.Block) []AppBlock {
	app := make([]AppBlock, len(blocks))
	for i, b := range blocks {
		app[i] = toAppBlock(b)
	}
	return app
}

// AppTx is a settled transaction returned to clients.
type AppTx struct {
	TransactionHash  string `json:"transaction_hash"`
	SenderWalletID   string `json:"sender_wallet_id,omitempty"`
	ReceiverWalletID string `json:"receiver_wallet_id"`
	Amount           string `json:"amount"`
	Fee              string `json:"fee"`
	Note             string `json:"note,omitempty"`
	TransactionType  string `json:"transaction_type"`
	BlockIndex       int64  `json:"block_index"`
	Timestamp        string `json:"timestamp"`
}

func toAppTx(tx chain.Tx) AppTx {
	return AppTx{
		TransactionHash:  tx.TxHash,
		SenderWalletID:   tx.SenderID,
		ReceiverWalletID: tx.ReceiverID,
		Amount:           money.Format(tx.Amount),
		Fee:              money.Format(tx.Fee),
		Note:             tx.Note,
		TransactionType:  tx.TxType,
		BlockIndex:       tx.BlockIndex,
		Timestamp:        time.Unix(tx.Timestamp, 0).UTC().Format(time.RFC3339),
	}
}

// AppBlockDetail is a block header with the transactions it settled.
type AppBlockDetail struct {
	AppBlock
	Transactions []AppTx `json:"transactions"`
}

func toAppBlockDetail(b chain.Block, txs []chain.Tx) AppBlockDetail {
	app := AppBlockDetail{
		AppBlock:     toAppBlock(b),
		Transactions: make([]AppTx, len(txs)),
	}
	for i, tx := range txs {
		app.Transactions[i] = toAppTx(tx)
	}
	return app
}
