package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/dinarlabs/ledger/app/services/ledger/handlers"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/ledger/worker"
	"github.com/dinarlabs/ledger/business/sys/schema"
	"github.com/dinarlabs/ledger/business/web/auth"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/events"
	"github.com/dinarlabs/ledger/foundation/logger"
	"github.com/dinarlabs/ledger/foundation/money"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("LEDGER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:40s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			RequestTimeout  time.Duration `conf:"default:30s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			CorsOrigin      string        `conf:"default:*"`
		}
		DB struct {
			URL string `conf:"default:sqlite://data/ledger.db,env:DATABASE_URL"`
		}
		Auth struct {
			JWTSecret string        `conf:"required,mask,env:JWT_SECRET"`
			Issuer    string        `conf:"default:ledger"`
			TokenTTL  time.Duration `conf:"default:24h"`
		}
		Ledger struct {
			AESKey            string        `conf:"required,mask,env:AES_ENCRYPTION_KEY"`
			Difficulty        int           `conf:"default:3,env:MINING_DIFFICULTY"`
			InitialReward     string        `conf:"default:500,env:BLOCK_REWARD_INITIAL"`
			HalvingInterval   int64         `conf:"default:5,env:HALVING_INTERVAL"`
			Fee               string        `conf:"default:0.1,env:TX_FEE"`
			MaxBatch          int           `conf:"default:500,env:MAX_BATCH"`
			PendingTTLSeconds int           `conf:"default:86400,env:PENDING_TTL_SECONDS"`
			TimestampSkew     time.Duration `conf:"default:15m"`
		}
		Zakat struct {
			Rate      string        `conf:"default:0.025"`
			Threshold string        `conf:"default:100"`
			Period    time.Duration `conf:"default:720h"`
		}
		Worker struct {
			SweepInterval time.Duration `conf:"default:1m"`
			ZakatInterval time.Duration `conf:"default:5m,env:ZAKAT_CHECK_INTERVAL"`
			OpTimeout     time.Duration `conf:"default:5m"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "LEDGER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(` ____   ___  _   _     _     ____     _      _____  ____    ____  _____  ____`)
	fmt.Println(`|  _ \ |_ _|| \ | |   / \   |  _ \   | |    | ____||  _ \  / ___|| ____||  _ \`)
	fmt.Println(`| | | | | | |  \| |  / _ \  | |_) |  | |    |  _|  | | | || |  _ |  _|  | |_) |`)
	fmt.Println(`| |_| | | | | |\  | / ___ \ |  _ <   | |___ | |___ | |_| || |_| || |___ |  _ <`)
	fmt.Println(`|____/ |___||_| \_|/_/   \_\|_| \_\  |_____||_____||____/  \____||_____||_| \_\`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs. Secrets are masked
	// by the conf package.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Database Support

	log.Infow("startup", "status", "initializing database support", "url", cfg.DB.URL)

	db, err := database.Open(log, cfg.DB.URL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Infow("shutdown", "status", "stopping database support")
		db.Close()
	}()

	// The schema is idempotent so it runs on every start. First start
	// creates the tables, later starts are no-ops.
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	defer cancelMigrate()
	if err := schema.Migrate(migrateCtx, db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	// =========================================================================
	// Auth Support

	authSrv, err := auth.New(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("constructing auth: %w", err)
	}

	// =========================================================================
	// Ledger Support

	fee, err := money.Parse(cfg.Ledger.Fee)
	if err != nil {
		return fmt.Errorf("parsing fee: %w", err)
	}
	reward, err := money.Parse(cfg.Ledger.InitialReward)
	if err != nil {
		return fmt.Errorf("parsing initial reward: %w", err)
	}
	zakatRate, err := money.Parse(cfg.Zakat.Rate)
	if err != nil {
		return fmt.Errorf("parsing zakat rate: %w", err)
	}
	zakatThreshold, err := money.Parse(cfg.Zakat.Threshold)
	if err != nil {
		return fmt.Errorf("parsing zakat threshold: %w", err)
	}

	// Events are sent to any websocket client connected into the system
	// through the events package.
	evts := events.New()

	lgr, err := ledger.New(context.Background(), ledger.Config{
		Log:            log,
		DB:             db,
		Events:         evts,
		AESKey:         cfg.Ledger.AESKey,
		Fee:            fee,
		MaxBatch:       cfg.Ledger.MaxBatch,
		Skew:           cfg.Ledger.TimestampSkew,
		PendingTTL:     time.Duration(cfg.Ledger.PendingTTLSeconds) * time.Second,
		InitialReward:  reward,
		HalvingEvery:   cfg.Ledger.HalvingInterval,
		Difficulty:     cfg.Ledger.Difficulty,
		ZakatRate:      zakatRate,
		ZakatThreshold: zakatThreshold,
		ZakatPeriod:    cfg.Zakat.Period,
	})
	if err != nil {
		return fmt.Errorf("constructing ledger: %w", err)
	}
	defer lgr.Shutdown()

	// The worker implements the recurring workflows: sweeping expired
	// pending transactions and the zakat cycle. The worker will register
	// itself with the ledger.
	worker.Run(worker.Config{
		Ledger:        lgr,
		Log:           log,
		SweepInterval: cfg.Worker.SweepInterval,
		ZakatInterval: cfg.Worker.ZakatInterval,
		OpTimeout:     cfg.Worker.OpTimeout,
	})

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, db, lgr)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:       shutdown,
		Log:            log,
		Ledger:         lgr,
		Auth:           authSrv,
		Evts:           evts,
		DB:             db,
		Build:          build,
		CorsOrigin:     cfg.Web.CorsOrigin,
		RequestTimeout: cfg.Web.RequestTimeout,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown:       shutdown,
		Log:            log,
		Ledger:         lgr,
		Auth:           authSrv,
		DB:             db,
		Build:          build,
		RequestTimeout: cfg.Web.RequestTimeout,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
