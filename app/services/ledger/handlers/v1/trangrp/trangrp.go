// Package trangrp maintains the group of handlers for transaction
// submission and lookup.
package trangrp

import (
	"context"
	"errors"
	"net/http"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/tran"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/business/web/auth"
	"github.com/dinarlabs/ledger/business/web/errs"
	v1 "github.com/dinarlabs/ledger/business/web/v1"
	"github.com/dinarlabs/ledger/foundation/money"
	"github.com/dinarlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of transaction endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
}

// Create signs and submits a transfer from the authenticated user's
// wallet. The stated sender must be the caller's own wallet.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewKinded(errs.Auth, err)
	}

	var app AppNewTransaction
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	amount, err := money.Parse(app.Amount)
	if err != nil {
		return errs.NewKinded(errs.Validation, err)
	}

	wlt, err := h.Ledger.WalletForUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}
	if app.SenderWalletID != "" && app.SenderWalletID != wlt.WalletID {
		return errs.NewKinded(errs.Auth, errors.New("sender wallet is not owned by the caller"))
	}

	rcpt, err := h.Ledger.CreateTransaction(ctx, claims.Subject, app.RecipientWalletID, amount, app.Note, r.RemoteAddr, r.UserAgent())
	if err != nil {
		return mapSubmitError(err)
	}

	return v1.Respond(ctx, w, toAppReceipt(rcpt), http.StatusCreated)
}

// Query looks a transaction up by hash across the chain and the mempool.
func (h Handlers) Query(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txHash := web.Param(r, "tx_hash")

	entry, err := h.Ledger.TxByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppEntry(entry), http.StatusOK)
}

// Pending returns the mempool in mining order.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pending, err := h.Ledger.PendingTransactions(ctx)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppPending(pending), http.StatusOK)
}

// Fee returns the flat fee applied to transfers.
func (h Handlers) Fee(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	data := struct {
		Fee string `json:"fee"`
	}{
		Fee: money.Format(h.Ledger.Fee()),
	}

	return v1.Respond(ctx, w, data, http.StatusOK)
}

// mapSubmitError translates admission failures into their response
// categories.
func mapSubmitError(err error) error {
	switch {
	case errors.Is(err, tran.ErrValidation):
		return errs.NewKinded(errs.Validation, err)
	case errors.Is(err, tran.ErrUnknownWallet):
		return errs.NewKinded(errs.NotFound, err)
	case errors.Is(err, tran.ErrIdentity), errors.Is(err, tran.ErrSignature):
		return errs.NewKinded(errs.Auth, err)
	case errors.Is(err, tran.ErrDuplicateTx):
		return errs.NewKinded(errs.Conflict, err)
	case errors.Is(err, utxo.ErrInsufficientFunds):
		return errs.NewKinded(errs.InsufficientFunds, err)
	case errors.Is(err, utxo.ErrConflict):
		return errs.NewKinded(errs.Conflict, err)
	case errors.Is(err, wallet.ErrNotFound):
		return errs.NewKinded(errs.NotFound, err)
	}
	return err
}
