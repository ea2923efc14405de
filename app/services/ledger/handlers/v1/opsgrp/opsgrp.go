// Package opsgrp maintains the group of handlers exposed on the private
// host: zakat triggering, audit log access and reporting. These routes
// are reachable by operators only and carry no end user authentication.
package opsgrp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/business/web/errs"
	v1 "github.com/dinarlabs/ledger/business/web/v1"
	"github.com/dinarlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
}

// TriggerZakat runs one deduction cycle over all due wallets and reports
// the outcome per wallet class.
func (h Handlers) TriggerZakat(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	sum, err := h.Ledger.RunZakat(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrNotAcceptingWork) {
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppZakatSummary(sum), http.StatusOK)
}

// SystemLogs returns a page of system audit entries, newest first. The
// type query filters to one stream (AUTH, MINING, ZAKAT, ...).
func (h Handlers) SystemLogs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	page := web.QueryInt(r, "page", 1)
	rows := web.QueryInt(r, "rows", 50)
	logType := r.URL.Query().Get("type")

	entries, err := h.Ledger.SystemLogs(ctx, logType, page, rows)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppSystemLogs(entries), http.StatusOK)
}

// TransactionLogs returns a page of wallet audit entries, newest first.
// The wallet_id query filters to one wallet.
func (h Handlers) TransactionLogs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	page := web.QueryInt(r, "page", 1)
	rows := web.QueryInt(r, "rows", 50)
	walletID := r.URL.Query().Get("wallet_id")

	entries, err := h.Ledger.TransactionLogs(ctx, walletID, page, rows)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppTranLogs(entries), http.StatusOK)
}

// MonthlyReport builds a wallet's settled activity summary for one
// month. Year and month default to the current month in UTC.
func (h Handlers) MonthlyReport(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	walletID := web.Param(r, "wallet_id")

	now := time.Now().UTC()
	year := web.QueryInt(r, "year", now.Year())
	month := web.QueryInt(r, "month", int(now.Month()))

	if month < 1 || month > 12 {
		return errs.NewKinded(errs.Validation, errors.New("month must be between 1 and 12"))
	}

	st, err := h.Ledger.MonthlyStatement(ctx, walletID, year, time.Month(month))
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppStatement(st), http.StatusOK)
}

// Analytics returns service wide activity figures: settled volume per
// day and wallet counts over a trailing window of days.
func (h Handlers) Analytics(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	days := web.QueryInt(r, "days", 0)

	an, err := h.Ledger.Analytics(ctx, days)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppAnalytics(an), http.StatusOK)
}
