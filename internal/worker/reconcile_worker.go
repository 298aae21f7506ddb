package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/creator-service/internal/service"
)

// ReconcileWorker drives activation reconciliation in the background: a
// cron sweep nudges every unresolved account, and a bounded watch loop is
// launched per account right after activation so fresh requests converge
// quickly without any client polling.
type ReconcileWorker struct {
	activation *service.ActivationService
	logger     *zap.Logger

	pollInterval time.Duration
	deadline     time.Duration

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	watching map[string]struct{}
}

// NewReconcileWorker constructs the worker.
func NewReconcileWorker(activation *service.ActivationService, pollInterval, deadline time.Duration, logger *zap.Logger) *ReconcileWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &ReconcileWorker{
		activation:   activation,
		logger:       logger,
		pollInterval: pollInterval,
		deadline:     deadline,
		cron:         cron.New(),
		ctx:          ctx,
		cancel:       cancel,
		watching:     make(map[string]struct{}),
	}
}

// Start registers the sweep on the given cron spec and starts the scheduler.
func (w *ReconcileWorker) Start(sweepSpec string) error {
	if _, err := w.cron.AddFunc(sweepSpec, w.sweep); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("reconcile sweep scheduled", zap.String("spec", sweepSpec))
	return nil
}

// Stop halts the scheduler and waits for in-flight watches to observe
// cancellation.
func (w *ReconcileWorker) Stop() {
	cronCtx := w.cron.Stop()
	w.cancel()
	w.wg.Wait()
	<-cronCtx.Done()
}

// Watch launches a bounded watch loop for the account unless one is
// already running.
func (w *ReconcileWorker) Watch(accountID string) {
	w.mu.Lock()
	if _, running := w.watching[accountID]; running {
		w.mu.Unlock()
		return
	}
	w.watching[accountID] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.watching, accountID)
			w.mu.Unlock()
		}()

		result, err := w.activation.WatchUntilTerminal(w.ctx, accountID, w.pollInterval, w.deadline)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			w.logger.Warn("watch aborted", zap.String("account_id", accountID), zap.Error(err))
			return
		}
		w.logger.Info("watch finished",
			zap.String("account_id", accountID),
			zap.String("result", string(result)))
	}()
}

// sweep runs one reconcile for every account stuck in a non-terminal
// state, so statuses converge even when nobody is watching.
func (w *ReconcileWorker) sweep() {
	ctx, cancel := context.WithTimeout(w.ctx, 2*time.Minute)
	defer cancel()

	accounts, err := w.activation.ListUnresolved(ctx, 100)
	if err != nil {
		w.logger.Warn("sweep listing failed", zap.Error(err))
		return
	}
	for _, account := range accounts {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.activation.Reconcile(ctx, account.AccountID); err != nil {
			w.logger.Debug("sweep reconcile failed",
				zap.String("account_id", account.AccountID), zap.Error(err))
		}
	}
	if len(accounts) > 0 {
		w.logger.Info("sweep completed", zap.Int("accounts", len(accounts)))
	}
}
