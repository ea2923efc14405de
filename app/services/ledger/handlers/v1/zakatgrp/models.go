package zakatgrp

import (
	"strconv"
	"time"

	"github.com/dinarlabs/ledger/business/core/zakat"
	"github.com/dinarlabs/ledger/foundation/money"
)

// AppRecord is one zakat deduction returned to clients.
type AppRecord struct {
	ID              string `json:"id"`
	WalletID        string `json:"wallet_id"`
	Amount          string `json:"amount"`
	TransactionHash string `json:"transaction_hash"`
	DeductionDate   string `json:"deduction_date"`
}

func toAppRecord(rec zakat.Record) AppRecord {
	return AppRecord{
		ID:              strconv.FormatInt(rec.ID, 10),
		WalletID:        rec.WalletID,
		Amount:          money.Format(rec.Amount),
		TransactionHash: rec.TxHash,
		DeductionDate:   rec.DeductionDate.Format(time.RFC3339),
	}
}

func toAppRecords(recs []zakat.Record) []AppRecord {
	app := make([]AppRecord, len(recs))
	for i, rec := range recs {
		app[i] = toAppRecord(rec)
	}
	return app
}

// AppPool reports the pool wallet and its spendable balance.
type AppPool struct {
	WalletID string `json:"wallet_id"`
	Balance  string `json:"balance"`
}
