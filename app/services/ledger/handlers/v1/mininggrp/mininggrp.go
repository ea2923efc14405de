// Package mininggrp maintains the group of handlers for block production.
package mininggrp

import (
	"context"
	"errors"
	"net/http"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/miner"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/business/web/auth"
	"github.com/dinarlabs/ledger/business/web/errs"
	v1 "github.com/dinarlabs/ledger/business/web/v1"
	"github.com/dinarlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of mining endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
}

// MineBlock assembles pending transactions into a block, runs the proof
// of work and settles the result. The coinbase is credited to the
// authenticated caller's wallet.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewKinded(errs.Auth, err)
	}

	var app AppMineRequest
	if r.ContentLength > 0 {
		if err := web.Decode(r, &app); err != nil {
			return err
		}
	}

	wlt, err := h.Ledger.WalletForUser(ctx, claims.Subject)
	if err != nil {
		return errs.NewKinded(errs.NotFound, err)
	}

	if app.MinerWalletID != "" && app.MinerWalletID != wlt.WalletID {
		return errs.NewKinded(errs.Auth, errors.New("miner wallet does not belong to caller"))
	}

	mined, err := h.Ledger.Mine(ctx, wlt.WalletID)
	if err != nil {
		return mapMineError(err)
	}

	return v1.Respond(ctx, w, toAppMinedBlock(mined), http.StatusCreated)
}

// Stats returns chain production figures.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	stats, err := h.Ledger.MiningStats(ctx)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppMiningStats(stats), http.StatusOK)
}

// mapMineError classifies mining failures into the trusted categories
// the API reports. Anything unclassified stays untrusted and is logged
// as a 500.
func mapMineError(err error) error {
	switch {
	case errors.Is(err, miner.ErrEmptyMempool):
		return errs.NewKinded(errs.Validation, err)
	case errors.Is(err, miner.ErrMiningBusy):
		return errs.NewKinded(errs.Conflict, err)
	case errors.Is(err, chain.ErrStaleTip):
		return errs.NewKinded(errs.Conflict, err)
	case errors.Is(err, wallet.ErrNotFound):
		return errs.NewKinded(errs.NotFound, err)
	case errors.Is(err, ledger.ErrNotAcceptingWork):
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	}
	return err
}
