package reconcile

import (
	"context"
	"time"

	"solshop-be/internal/ledger"
	"solshop-be/internal/logger"
	"solshop-be/internal/order"

	"go.uber.org/zap"
)

// OrderStore is the slice of order storage the worker needs. Satisfied
// by order.Repository.
type OrderStore interface {
	ListUnsettled(ctx context.Context) ([]*order.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to order.Status, txHash *string) (*order.Order, error)
}

// Worker sweeps pending orders that carry a broadcast tx hash and marks
// them paid once the ledger reports settlement. It closes the gap left
// by submissions whose confirmation poll timed out or was abandoned.
type Worker struct {
	store    OrderStore
	ledger   ledger.Client
	interval time.Duration
}

func NewWorker(store OrderStore, ledgerClient ledger.Client, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{
		store:    store,
		ledger:   ledgerClient,
		interval: interval,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log := logger.L().With(zap.String("layer", "reconcile"))
	log.Info("reconciliation worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one reconciliation pass. A failure on one order never
// blocks the rest of the batch.
func (w *Worker) sweep(ctx context.Context) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "reconcile"))

	orders, err := w.store.ListUnsettled(ctx)
	if err != nil {
		log.Error("failed to list unsettled orders", zap.Error(err))
		return
	}
	if len(orders) == 0 {
		return
	}

	log.Info("reconciling unsettled orders", zap.Int("count", len(orders)))

	settled := 0
	for _, o := range orders {
		if ctx.Err() != nil {
			return
		}
		if o.PaymentTxHash == nil {
			continue
		}
		hash := *o.PaymentTxHash

		confirmed, err := w.ledger.Confirm(ctx, hash)
		if err != nil {
			log.Warn("ledger lookup failed",
				zap.String("order_id", o.ID),
				zap.String("tx_hash", hash),
				zap.Error(err),
			)
			continue
		}
		if !confirmed {
			continue
		}

		if _, err := w.store.UpdateStatus(ctx, o.ID, order.StatusPaid, &hash); err != nil {
			log.Error("failed to mark reconciled order paid",
				zap.String("order_id", o.ID),
				zap.Error(err),
			)
			continue
		}
		settled++
		log.Info("order settled by reconciliation",
			zap.String("order_id", o.ID),
			zap.String("tx_hash", hash),
		)
	}

	if settled > 0 {
		log.Info("reconciliation pass complete", zap.Int("settled", settled))
	}
}
