// Package ledger is the core API for the wallet service and implements
// all the business rules and processing. It composes the domain cores
// behind one value the handlers and background worker talk to.
package ledger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dinarlabs/ledger/business/core/beneficiary"
	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/logs"
	"github.com/dinarlabs/ledger/business/core/mempool"
	"github.com/dinarlabs/ledger/business/core/miner"
	"github.com/dinarlabs/ledger/business/core/report"
	"github.com/dinarlabs/ledger/business/core/tran"
	"github.com/dinarlabs/ledger/business/core/user"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/business/core/zakat"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/events"
	"github.com/dinarlabs/ledger/foundation/keystore"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Worker interface represents the behavior required to be implemented by
// any package providing support for background processing.
type Worker interface {
	Shutdown()
}

// Config represents the configuration required to start the ledger core.
type Config struct {
	Log            *zap.SugaredLogger
	DB             *database.DB
	Events         *events.Events
	AESKey         string
	Fee            decimal.Decimal
	MaxBatch       int
	Skew           time.Duration
	PendingTTL     time.Duration
	InitialReward  decimal.Decimal
	HalvingEvery   int64
	Difficulty     int
	ZakatRate      decimal.Decimal
	ZakatThreshold decimal.Decimal
	ZakatPeriod    time.Duration
	OTPSender      user.Sender
}

// Core manages the ledger and the domain cores beneath it.
type Core struct {
	log        *zap.SugaredLogger
	db         *database.DB
	events     *events.Events
	pendingTTL time.Duration
	otpSender  user.Sender
	healthy    atomic.Bool

	user        *user.Core
	wallet      *wallet.Core
	utxo        *utxo.Core
	mempool     *mempool.Core
	chain       *chain.Core
	tran        *tran.Core
	miner       *miner.Core
	beneficiary *beneficiary.Core
	zakat       *zakat.Core
	logs        *logs.Core
	report      *report.Core

	// Worker is not set here. The call to worker.Run will assign itself
	// and start the background processing for the node.
	Worker Worker
}

// New constructs the ledger core, bootstrapping the genesis block and the
// zakat pool on first start.
func New(ctx context.Context, cfg Config) (*Core, error) {
	ks, err := keystore.New(cfg.AESKey)
	if err != nil {
		return nil, fmt.Errorf("constructing keystore: %w", err)
	}

	sender := cfg.OTPSender
	if sender == nil {
		sender = user.LogSender{Log: cfg.Log}
	}

	usrCore := user.New(cfg.Log, cfg.DB)
	wltCore := wallet.New(cfg.Log, cfg.DB, ks)
	utxCore := utxo.New(cfg.Log, cfg.DB)
	memCore := mempool.New(cfg.Log, cfg.DB)
	chnCore := chain.New(cfg.Log, cfg.DB)
	logCore := logs.New(cfg.Log, cfg.DB)
	rptCore := report.New(cfg.Log, cfg.DB, chnCore, memCore)

	trnCore := tran.New(tran.Config{
		Log:     cfg.Log,
		DB:      cfg.DB,
		UTXO:    utxCore,
		Mempool: memCore,
		Chain:   chnCore,
		Wallet:  wltCore,
		Fee:     cfg.Fee,
		Skew:    cfg.Skew,
	})

	zakCore := zakat.New(zakat.Config{
		Log:       cfg.Log,
		DB:        cfg.DB,
		User:      usrCore,
		Wallet:    wltCore,
		UTXO:      utxCore,
		Tran:      trnCore,
		Logs:      logCore,
		Rate:      cfg.ZakatRate,
		Threshold: cfg.ZakatThreshold,
		Period:    cfg.ZakatPeriod,
	})

	c := Core{
		log:        cfg.Log,
		db:         cfg.DB,
		events:     cfg.Events,
		pendingTTL: cfg.PendingTTL,
		otpSender:  sender,

		user:        usrCore,
		wallet:      wltCore,
		utxo:        utxCore,
		mempool:     memCore,
		chain:       chnCore,
		tran:        trnCore,
		beneficiary: beneficiary.New(cfg.Log, cfg.DB),
		zakat:       zakCore,
		logs:        logCore,
		report:      rptCore,
	}

	now := time.Now().UTC()

	genesis := Genesis{
		InitialReward:   cfg.InitialReward,
		HalvingInterval: cfg.HalvingEvery,
		Difficulty:      cfg.Difficulty,
	}
	if _, err := Bootstrap(ctx, cfg.Log, cfg.DB, genesis, now); err != nil {
		return nil, fmt.Errorf("bootstrapping chain: %w", err)
	}

	poolID, err := zakCore.EnsurePool(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("provisioning zakat pool: %w", err)
	}

	c.miner = miner.New(miner.Config{
		Log:         cfg.Log,
		DB:          cfg.DB,
		UTXO:        utxCore,
		Mempool:     memCore,
		Chain:       chnCore,
		Wallet:      wltCore,
		MaxBatch:    cfg.MaxBatch,
		ZakatWallet: poolID,
	})

	c.healthy.Store(true)

	return &c, nil
}

// Shutdown cleanly brings the ledger down: background processing stops
// and any in-flight proof-of-work search is interrupted.
func (c *Core) Shutdown() {
	if c.Worker != nil {
		c.Worker.Shutdown()
	}
	c.miner.Shutdown()
}

// Healthy reports whether the ledger is accepting work. It flips to
// false permanently when an invariant violation is detected.
func (c *Core) Healthy() bool {
	return c.healthy.Load()
}

// latchUnhealthy records a detected invariant violation. The readiness
// probe fails from here on so the deployment stops routing work to this
// process until an operator intervenes.
func (c *Core) latchUnhealthy(reason string) {
	if c.healthy.CompareAndSwap(true, false) {
		c.log.Errorw("ledger", "status", "UNHEALTHY", "reason", reason)
		c.logs.RecordSystem(context.Background(), logs.SystemLog{
			LogType: logs.TypeError,
			Message: fmt.Sprintf("ledger latched unhealthy: %s", reason),
		})
	}
}

// Fee returns the flat fee applied to user transfers.
func (c *Core) Fee() decimal.Decimal {
	return c.tran.Fee()
}

// ZakatPoolID returns the wallet id collecting zakat deductions.
func (c *Core) ZakatPoolID() string {
	return c.zakat.PoolWalletID()
}

// send publishes an event when a hub is configured.
func (c *Core) send(kind string, format string, args ...any) {
	if c.events != nil {
		c.events.Send(kind, format, args...)
	}
}
