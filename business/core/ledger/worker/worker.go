// Package worker implements the background processing for the ledger:
// sweeping expired pending transactions and running the periodic zakat
// deduction cycle.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/dinarlabs/ledger/business/core/ledger"
	"go.uber.org/zap"
)

// Worker manages the ledger's recurring background operations.
type Worker struct {
	ledger      *ledger.Core
	log         *zap.SugaredLogger
	wg          sync.WaitGroup
	sweepTicker *time.Ticker
	zakatTicker *time.Ticker
	opTimeout   time.Duration
	shut        chan struct{}
}

// Config holds the schedule the worker runs on.
type Config struct {
	Ledger        *ledger.Core
	Log           *zap.SugaredLogger
	SweepInterval time.Duration
	ZakatInterval time.Duration
	OpTimeout     time.Duration
}

// Run creates a worker, registers it with the ledger core, and starts up
// all the background processes.
func Run(cfg Config) {
	w := Worker{
		ledger:      cfg.Ledger,
		log:         cfg.Log,
		sweepTicker: time.NewTicker(cfg.SweepInterval),
		zakatTicker: time.NewTicker(cfg.ZakatInterval),
		opTimeout:   cfg.OpTimeout,
		shut:        make(chan struct{}),
	}

	// Register this worker with the ledger core.
	cfg.Ledger.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.sweepOperations,
		w.zakatOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// Shutdown terminates the goroutines performing the background work.
func (w *Worker) Shutdown() {
	w.log.Infow("worker", "status", "shutdown started")
	defer w.log.Infow("worker", "status", "shutdown completed")

	w.sweepTicker.Stop()
	w.zakatTicker.Stop()

	close(w.shut)
	w.wg.Wait()
}

// =============================================================================

// sweepOperations releases expired pending transactions on a schedule.
func (w *Worker) sweepOperations() {
	w.log.Infow("worker", "status", "sweep G started")
	defer w.log.Infow("worker", "status", "sweep G completed")

	for {
		select {
		case <-w.sweepTicker.C:
			w.runSweep()
		case <-w.shut:
			return
		}
	}
}

func (w *Worker) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.opTimeout)
	defer cancel()

	swept, err := w.ledger.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		w.log.Errorw("worker", "op", "sweep", "ERROR", err)
		return
	}
	if swept > 0 {
		w.log.Infow("worker", "op", "sweep", "swept", swept)
	}
}

// zakatOperations runs the deduction cycle on a schedule.
func (w *Worker) zakatOperations() {
	w.log.Infow("worker", "status", "zakat G started")
	defer w.log.Infow("worker", "status", "zakat G completed")

	for {
		select {
		case <-w.zakatTicker.C:
			w.runZakat()
		case <-w.shut:
			return
		}
	}
}

func (w *Worker) runZakat() {
	ctx, cancel := context.WithTimeout(context.Background(), w.opTimeout)
	defer cancel()

	sum, err := w.ledger.RunZakat(ctx)
	if err != nil {
		w.log.Errorw("worker", "op", "zakat", "ERROR", err)
		return
	}
	if sum.Deducted > 0 || sum.Failed > 0 {
		w.log.Infow("worker", "op", "zakat", "checked", sum.Checked,
			"deducted", sum.Deducted, "skipped", sum.Skipped, "failed", sum.Failed)
	}
}
