// Package authgrp maintains the group of handlers for account access.
package authgrp

import (
	"context"
	"errors"
	"net/http"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/user"
	"github.com/dinarlabs/ledger/business/web/auth"
	"github.com/dinarlabs/ledger/business/web/errs"
	v1 "github.com/dinarlabs/ledger/business/web/v1"
	"github.com/dinarlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of account endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
	Auth   *auth.Auth
}

// Register creates a new account with its wallet and emails the
// verification passcode.
func (h Handlers) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppRegister
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	acct, err := h.Ledger.Register(ctx, user.NewUser{
		Email:    app.Email,
		Password: app.Password,
		FullName: app.FullName,
		CNIC:     app.CNIC,
	}, r.RemoteAddr)
	if err != nil {
		if errors.Is(err, user.ErrUniqueEmail) {
			return errs.NewKinded(errs.Conflict, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppAccount(acct), http.StatusCreated)
}

// VerifyOTP consumes the emailed passcode and unlocks the account.
func (h Handlers) VerifyOTP(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppVerifyOTP
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	if err := h.Ledger.VerifyAccount(ctx, app.Email, app.OTP, r.RemoteAddr); err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidOTP):
			return errs.NewKinded(errs.Validation, err)
		case errors.Is(err, user.ErrNotFound):
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppMessage("account verified"), http.StatusOK)
}

// SendOTP issues a fresh passcode for an unverified account.
func (h Handlers) SendOTP(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppSendOTP
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	if err := h.Ledger.ResendOTP(ctx, app.Email); err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return errs.NewKinded(errs.NotFound, err)
		case errors.Is(err, user.ErrInvalidOTP):
			return errs.NewKinded(errs.Validation, errors.New("account already verified"))
		}
		return err
	}

	return v1.Respond(ctx, w, toAppMessage("passcode sent"), http.StatusOK)
}

// Login authenticates the credential pair and issues a bearer token.
func (h Handlers) Login(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app AppLogin
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	usr, err := h.Ledger.Authenticate(ctx, app.Email, app.Password, r.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrAuthenticationFailure):
			return errs.NewKinded(errs.Auth, err)
		case errors.Is(err, user.ErrNotVerified):
			return errs.NewKinded(errs.Auth, err)
		}
		return err
	}

	token, err := h.Auth.GenerateToken(usr.ID, usr.Email)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppToken(token, usr), http.StatusOK)
}

// Profile returns the authenticated user's account details.
func (h Handlers) Profile(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewKinded(errs.Auth, err)
	}

	usr, err := h.Ledger.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppUser(usr), http.StatusOK)
}

// UpdateProfile applies account changes for the authenticated user.
// Changing the email locks the account behind a fresh passcode sent to
// the new address.
func (h Handlers) UpdateProfile(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	claims, err := auth.GetClaims(ctx)
	if err != nil {
		return errs.NewKinded(errs.Auth, err)
	}

	var app AppUpdateProfile
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	usr, err := h.Ledger.UpdateProfile(ctx, claims.Subject, user.UpdateUser{
		FullName: app.FullName,
		Email:    app.Email,
	}, r.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUniqueEmail):
			return errs.NewKinded(errs.Conflict, err)
		case errors.Is(err, user.ErrNotFound):
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	return v1.Respond(ctx, w, toAppUser(usr), http.StatusOK)
}
