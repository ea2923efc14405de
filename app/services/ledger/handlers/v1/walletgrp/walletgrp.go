// Package walletgrp maintains the group of handlers for wallet reads.
package walletgrp

import (
	"context"
	"errors"
	"net/http"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/business/web/errs"
	v1 "github.com/dinarlabs/ledger/business/web/v1"
	"github.com/dinarlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of wallet endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
}

// Query returns the public view of a wallet.
func (h Handlers) Query(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	walletID := web.Param(r, "id")

	wlt, err := h.Ledger.WalletByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	balance, err := h.Ledger.Balance(ctx, walletID)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppWallet(wlt, balance), http.StatusOK)
}

// Balance returns the spendable balance, computed from unspent and
// unreserved outputs at call time.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	walletID := web.Param(r, "id")

	balance, err := h.Ledger.Balance(ctx, walletID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppBalance(walletID, balance), http.StatusOK)
}

// UTXOs returns the wallet's unspent outputs, reserved ones included.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	walletID := web.Param(r, "id")

	utxos, err := h.Ledger.UTXOs(ctx, walletID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppUTXOs(utxos), http.StatusOK)
}

// Transactions returns the wallet's merged history: pending entries
// first-class alongside a page of settled transactions.
func (h Handlers) Transactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	walletID := web.Param(r, "id")
	page := web.QueryInt(r, "page", 1)
	rows := web.QueryInt(r, "rows", 50)

	entries, err := h.Ledger.History(ctx, walletID, page, rows)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppEntries(entries), http.StatusOK)
}
