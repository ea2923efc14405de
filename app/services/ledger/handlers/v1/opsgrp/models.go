package opsgrp

import (
	"time"

	"github.com/dinarlabs/ledger/business/core/logs"
	"github.com/dinarlabs/ledger/business/core/report"
	"github.com/dinarlabs/ledger/business/core/zakat"
	"github.com/dinarlabs/ledger/foundation/money"
)

// AppZakatSummary reports the outcome of one deduction cycle.
type AppZakatSummary struct {
	Checked  int    `json:"checked"`
	Deducted int    `json:"deducted"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Total    string `json:"total"`
}

func toAppZakatSummary(sum zakat.Summary) AppZakatSummary {
	return AppZakatSummary{
		Checked:  sum.Checked,
		Deducted: sum.Deducted,
		Skipped:  sum.Skipped,
		Failed:   sum.Failed,
		Total:    money.Format(sum.Total),
	}
}

// AppSystemLog is one system audit entry returned to operators.
type AppSystemLog struct {
	ID        int64  `json:"id"`
	LogType   string `json:"log_type"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message"`
	IP        string `json:"ip_address,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toAppSystemLogs(entries []logs.SystemLog) []AppSystemLog {
	app := make([]AppSystemLog, len(entries))
	for i, sl := range entries {
		app[i] = AppSystemLog{
			ID:        sl.ID,
			LogType:   sl.LogType,
			UserID:    sl.UserID,
			Message:   sl.Message,
			IP:        sl.IP,
			Metadata:  sl.Metadata,
			CreatedAt: sl.CreatedAt.Format(time.RFC3339),
		}
	}
	return app
}

// AppTranLog is one wallet audit entry returned to operators.
type AppTranLog struct {
	ID              int64  `json:"id"`
	WalletID        string `json:"wallet_id"`
	Action          string `json:"action"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	BlockHash       string `json:"block_hash,omitempty"`
	Status          string `json:"status"`
	IP              string `json:"ip_address,omitempty"`
	UserAgent       string `json:"user_agent,omitempty"`
	Note            string `json:"note,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toAppTranLogs(entries []logs.TranLog) []AppTranLog {
	app := make([]AppTranLog, len(entries))
	for i, tl := range entries {
		app[i] = AppTranLog{
			ID:              tl.ID,
			WalletID:        tl.WalletID,
			Action:          tl.Action,
			TransactionHash: tl.TxHash,
			BlockHash:       tl.BlockHash,
			Status:          tl.Status,
			IP:              tl.IP,
			UserAgent:       tl.UserAgent,
			Note:            tl.Note,
			CreatedAt:       tl.CreatedAt.Format(time.RFC3339),
		}
	}
	return app
}

// AppStatement is a wallet's monthly activity summary.
type AppStatement struct {
	WalletID  string `json:"wallet_id"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Sent      string `json:"sent"`
	Received  string `json:"received"`
	Fees      string `json:"fees"`
	Zakat     string `json:"zakat"`
	Mined     string `json:"mined"`
	TxCount   int    `json:"tx_count"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toAppStatement(st report.Statement) AppStatement {
	return AppStatement{
		WalletID:  st.WalletID,
		Year:      st.Year,
		Month:     int(st.Month),
		Sent:      money.Format(st.Sent),
		Received:  money.Format(st.Received),
		Fees:      money.Format(st.Fees),
		Zakat:     money.Format(st.Zakat),
		Mined:     money.Format(st.Mined),
		TxCount:   st.TxCount,
		StartTime: st.StartTime.Format(time.RFC3339),
		EndTime:   st.EndTime.Format(time.RFC3339),
	}
}

// AppDayVolume is one day of settled transfer activity.
type AppDayVolume struct {
	Day    string `json:"day"`
	Count  int    `json:"count"`
	Amount string `json:"amount"`
	Fees   string `json:"fees"`
}

// AppAnalytics is the service activity snapshot served on the private
// host.
type AppAnalytics struct {
	From          string         `json:"from"`
	To            string         `json:"to"`
	Volume        []AppDayVolume `json:"volume"`
	ActiveWallets int            `json:"active_wallets"`
	TotalWallets  int64          `json:"total_wallets"`
}

func toAppAnalytics(an report.Analytics) AppAnalytics {
	vol := make([]AppDayVolume, len(an.Volume))
	for i, dv := range an.Volume {
		vol[i] = AppDayVolume{
			Day:    dv.Day.Format("2006-01-02"),
			Count:  dv.Count,
			Amount: money.Format(dv.Amount),
			Fees:   money.Format(dv.Fees),
		}
	}

	return AppAnalytics{
		From:          an.From.Format("2006-01-02"),
		To:            an.To.Format("2006-01-02"),
		Volume:        vol,
		ActiveWallets: an.ActiveWallets,
		TotalWallets:  an.TotalWallets,
	}
}
