// Package zakatgrp maintains the group of handlers for zakat queries.
package zakatgrp

import (
	"context"
	"net/http"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/web/auth"
	"github.com/dinarlabs/ledger/business/web/errs"
	v1 "github.com/dinarlabs/ledger/business/web/v1"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of zakat endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
}

// Records returns the caller's deduction history, newest first.
func (h Handlers) Records(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewKinded(errs.Auth, err)
	}

	wlt, err := h.Ledger.WalletForUser(ctx, claims.Subject)
	if err != nil {
		return errs.NewKinded(errs.NotFound, err)
	}

	page := web.QueryInt(r, "page", 1)
	rows := web.QueryInt(r, "rows", 50)

	records, err := h.Ledger.ZakatRecords(ctx, wlt.WalletID, page, rows)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppRecords(records), http.StatusOK)
}

// Pool returns the pool wallet and the balance it currently holds.
func (h Handlers) Pool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	balance, err := h.Ledger.ZakatPoolBalance(ctx)
	if err != nil {
		return err
	}

	app := AppPool{
		WalletID: h.Ledger.ZakatPoolID(),
		Balance:  money.Format(balance),
	}

	return v1.Respond(ctx, w, app, http.StatusOK)
}
