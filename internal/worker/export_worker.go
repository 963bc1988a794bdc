// Package worker mirrors ledger state into the spreadsheet exporter. It reacts
// to ledger events from AMQP and also runs a periodic full export so missed
// messages are eventually repaired.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"finance/internal/amqp"
	"finance/internal/log"
	"finance/internal/sheets"
	"finance/internal/store"
)

type ExportWorkerConfig struct {
	// Interval between full exports (default: 10m)
	Interval time.Duration
}

func DefaultExportWorkerConfig() ExportWorkerConfig {
	return ExportWorkerConfig{Interval: 10 * time.Minute}
}

type ExportWorker struct {
	budgets  store.BudgetStore
	pots     store.PotStore
	exporter sheets.Exporter
	config   ExportWorkerConfig
	logger   *log.Logger
	now      func() time.Time

	// lastFull is the instant of the last successful full export. Events
	// stamped before it are already reflected in the sheet.
	lastMu   sync.Mutex
	lastFull time.Time

	exportMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportWorker(budgets store.BudgetStore, pots store.PotStore, exporter sheets.Exporter, config ExportWorkerConfig, logger *log.Logger) *ExportWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultExportWorkerConfig().Interval
	}
	return &ExportWorker{
		budgets:  budgets,
		pots:     pots,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleEvent exports the table touched by ev. It is the AMQP consumer handler.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if w.isStale(ev) {
		w.logger.DebugContext(ctx, "Skipping event older than last full export",
			log.FieldEventType, ev.Type,
			"key", ev.Key)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventType, ev.Type,
		"key", ev.Key,
		"version", ev.Version)

	switch ev.Type {
	case amqp.EventBudgetSaved, amqp.EventBudgetDeleted, amqp.EventTransactionsImported:
		return w.exportBudgets(ctx)
	case amqp.EventPotSaved, amqp.EventPotDeleted:
		return w.exportPots(ctx)
	default:
		// user.registered and future types carry nothing to mirror
		return nil
	}
}

// ExportAll writes both tables and records the export time.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	started := w.now()
	if err := w.exportBudgets(ctx); err != nil {
		return err
	}
	if err := w.exportPots(ctx); err != nil {
		return err
	}

	w.lastMu.Lock()
	w.lastFull = started
	w.lastMu.Unlock()

	w.logger.InfoContext(ctx, "Full export completed", log.FieldOperation, log.OpExport)
	return nil
}

// LastFullExport returns the start time of the last successful full export.
func (w *ExportWorker) LastFullExport() time.Time {
	w.lastMu.Lock()
	defer w.lastMu.Unlock()
	return w.lastFull
}

func (w *ExportWorker) isStale(ev *amqp.LedgerEvent) bool {
	w.lastMu.Lock()
	defer w.lastMu.Unlock()
	return !w.lastFull.IsZero() && ev.Version < w.lastFull.UnixNano()
}

func (w *ExportWorker) exportBudgets(ctx context.Context) error {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	budgets, err := w.budgets.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	if err := w.exporter.WriteBudgets(ctx, budgets); err != nil {
		return fmt.Errorf("write budgets: %w", err)
	}
	w.logger.DebugContext(ctx, "Budgets exported", log.FieldCount, len(budgets))
	return nil
}

func (w *ExportWorker) exportPots(ctx context.Context) error {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	pots, err := w.pots.ListPots(ctx)
	if err != nil {
		return fmt.Errorf("list pots: %w", err)
	}
	if err := w.exporter.WritePots(ctx, pots); err != nil {
		return fmt.Errorf("write pots: %w", err)
	}
	w.logger.DebugContext(ctx, "Pots exported", log.FieldCount, len(pots))
	return nil
}

// Start begins the periodic export loop. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx, w.stopCh, w.doneCh)

	w.logger.InfoContext(ctx, "Export worker started", "interval", w.config.Interval)
	return nil
}

// Stop signals the loop and waits for it, or for ctx to expire.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Export worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.exportOrLog(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.exportOrLog(ctx)
		}
	}
}

func (w *ExportWorker) exportOrLog(ctx context.Context) {
	if err := w.ExportAll(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Full export failed", log.FieldError, err)
	}
}
