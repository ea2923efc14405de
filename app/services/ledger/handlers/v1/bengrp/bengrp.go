// Package bengrp maintains the group of handlers for saved recipients.
package bengrp

import (
	"context"
	"errors"
	"net/http"

	"github.com/dinarlabs/ledger/business/core/beneficiary"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/business/web/auth"
	"github.com/dinarlabs/ledger/business/web/errs"
	v1 "github.com/dinarlabs/ledger/business/web/v1"
	"github.com/dinarlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of beneficiary endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
}

// Create saves a recipient wallet under a nickname for the caller.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewKinded(errs.Auth, err)
	}

	var app AppNewBeneficiary
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	ben, err := h.Ledger.AddBeneficiary(ctx, claims.Subject, app.WalletID, app.Nickname)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNotFound):
			return errs.NewKinded(errs.NotFound, err)
		case errors.Is(err, beneficiary.ErrAlreadyExists):
			return errs.NewKinded(errs.Conflict, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppBeneficiary(ben), http.StatusCreated)
}

// Query returns the caller's saved recipients, oldest first.
func (h Handlers) Query(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewKinded(errs.Auth, err)
	}

	bens, err := h.Ledger.Beneficiaries(ctx, claims.Subject)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppBeneficiaries(bens), http.StatusOK)
}

// Delete removes one of the caller's saved recipients.
func (h Handlers) Delete(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewKinded(errs.Auth, err)
	}

	id := web.Param(r, "id")

	if err := h.Ledger.RemoveBeneficiary(ctx, claims.Subject, id); err != nil {
		if errors.Is(err, beneficiary.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, nil, http.StatusNoContent)
}
