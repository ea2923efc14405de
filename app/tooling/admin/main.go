// This program performs administrative tasks for the ledger service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/dinarlabs/ledger/app/tooling/admin/commands"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/foundation/database"
	"github.com/dinarlabs/ledger/foundation/logger"
	"github.com/dinarlabs/ledger/foundation/money"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

// ErrHelp provides context that help was given.
var ErrHelp = errors.New("provided help")

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, ErrHelp) {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args conf.Args
		DB   struct {
			URL string `conf:"default:sqlite://data/ledger.db,env:DATABASE_URL"`
		}
		Genesis struct {
			Difficulty      int    `conf:"default:3,env:MINING_DIFFICULTY"`
			InitialReward   string `conf:"default:500,env:BLOCK_REWARD_INITIAL"`
			HalvingInterval int64  `conf:"default:5,env:HALVING_INTERVAL"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	const prefix = "LEDGER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return ErrHelp
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// Keygen needs no database so handle it before opening one.
	if cfg.Args.Num(0) == "keygen" {
		return commands.Keygen()
	}

	db, err := database.Open(log, cfg.DB.URL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return processCommands(cfg.Args, log, db, cfg.Genesis.Difficulty, cfg.Genesis.InitialReward, cfg.Genesis.HalvingInterval)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, log *zap.SugaredLogger, db *database.DB, difficulty int, reward string, halving int64) error {
	ctx := context.Background()

	switch args.Num(0) {
	case "schema":
		if err := commands.Schema(ctx, args, db); err != nil {
			return fmt.Errorf("maintaining schema: %w", err)
		}

	case "genesis":
		initialReward, err := money.Parse(reward)
		if err != nil {
			return fmt.Errorf("parsing initial reward: %w", err)
		}
		g := ledger.Genesis{
			InitialReward:   initialReward,
			HalvingInterval: halving,
			Difficulty:      difficulty,
		}
		if err := commands.Genesis(ctx, log, db, g); err != nil {
			return fmt.Errorf("bootstrapping genesis: %w", err)
		}

	case "balances":
		if err := commands.Balances(ctx, args, db); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	default:
		fmt.Println("schema [drop]: ensure (or drop) the database tables")
		fmt.Println("genesis:       write block 0 and the monetary counters")
		fmt.Println("keygen:        generate a new AES_ENCRYPTION_KEY")
		fmt.Println("balances:      print the spendable balance per wallet")
		fmt.Println("provide a command to get more help.")
		return ErrHelp
	}

	return nil
}
