// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/dinarlabs/ledger/app/services/ledger/handlers/v1/authgrp"
	"github.com/dinarlabs/ledger/app/services/ledger/handlers/v1/bengrp"
	"github.com/dinarlabs/ledger/app/services/ledger/handlers/v1/chaingrp"
	"github.com/dinarlabs/ledger/app/services/ledger/handlers/v1/mininggrp"
	"github.com/dinarlabs/ledger/app/services/ledger/handlers/v1/opsgrp"
	"github.com/dinarlabs/ledger/app/services/ledger/handlers/v1/trangrp"
	"github.com/dinarlabs/ledger/app/services/ledger/handlers/v1/walletgrp"
	"github.com/dinarlabs/ledger/app/services/ledger/handlers/v1/zakatgrp"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/web/auth"
	"github.com/dinarlabs/ledger/business/web/v1/mid"
	"github.com/dinarlabs/ledger/foundation/events"
	"github.com/dinarlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
	Auth   *auth.Auth
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	authen := mid.Authenticate(cfg.Auth)

	agh := authgrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
		Auth:   cfg.Auth,
	}
	app.Handle(http.MethodPost, version, "/auth/register", agh.Register)
	app.Handle(http.MethodPost, version, "/auth/login", agh.Login)
	app.Handle(http.MethodPost, version, "/auth/send-otp", agh.SendOTP)
	app.Handle(http.MethodPost, version, "/auth/verify-otp", agh.VerifyOTP)
	app.Handle(http.MethodGet, version, "/auth/profile", agh.Profile, authen)
	app.Handle(http.MethodPut, version, "/auth/profile", agh.UpdateProfile, authen)

	tgh := trangrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
	}
	app.Handle(http.MethodPost, version, "/transactions/create", tgh.Create, authen)
	app.Handle(http.MethodGet, version, "/transactions/pending", tgh.Pending)
	app.Handle(http.MethodGet, version, "/transactions/fee", tgh.Fee)
	app.Handle(http.MethodGet, version, "/transactions/:tx_hash", tgh.Query)

	wgh := walletgrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
	}
	app.Handle(http.MethodGet, version, "/wallet/:id", wgh.Query)
	app.Handle(http.MethodGet, version, "/wallet/:id/balance", wgh.Balance)
	app.Handle(http.MethodGet, version, "/wallet/:id/utxos", wgh.UTXOs)
	app.Handle(http.MethodGet, version, "/wallet/:id/transactions", wgh.Transactions)

	mgh := mininggrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
	}
	app.Handle(http.MethodPost, version, "/mining/mine-block", mgh.MineBlock, authen)
	app.Handle(http.MethodGet, version, "/mining/stats", mgh.Stats)

	cgh := chaingrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
		Evts:   cfg.Evts,
	}
	app.Handle(http.MethodGet, version, "/blockchain/info", cgh.Info)
	app.Handle(http.MethodGet, version, "/blockchain/blocks", cgh.Blocks)
	app.Handle(http.MethodGet, version, "/blockchain/blocks/:id", cgh.BlockByRef)
	app.Handle(http.MethodGet, version, "/blockchain/validate", cgh.Validate)
	app.Handle(http.MethodGet, version, "/events", cgh.Events)

	bgh := bengrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
	}
	app.Handle(http.MethodGet, version, "/beneficiaries", bgh.Query, authen)
	app.Handle(http.MethodPost, version, "/beneficiaries", bgh.Create, authen)
	app.Handle(http.MethodDelete, version, "/beneficiaries/:id", bgh.Delete, authen)

	zgh := zakatgrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
	}
	app.Handle(http.MethodGet, version, "/zakat/records", zgh.Records, authen)
	app.Handle(http.MethodGet, version, "/zakat/pool", zgh.Pool)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	ogh := opsgrp.Handlers{
		Log:    cfg.Log,
		Ledger: cfg.Ledger,
	}

	app.Handle(http.MethodPost, version, "/zakat/trigger", ogh.TriggerZakat)
	app.Handle(http.MethodGet, version, "/logs/system", ogh.SystemLogs)
	app.Handle(http.MethodGet, version, "/logs/transactions", ogh.TransactionLogs)
	app.Handle(http.MethodGet, version, "/reports/monthly/:wallet_id", ogh.MonthlyReport)
	app.Handle(http.MethodGet, version, "/reports/analytics", ogh.Analytics)
}
