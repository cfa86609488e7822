// Package worker reacts to ledger change events published over AMQP.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/ports"
	"kakeibo/internal/services"
)

// AlertWorker recomputes budget alerts for the month an event touched and
// queues a report sync for it.
type AlertWorker struct {
	loader services.SnapshotLoader
	queue  ports.SyncQueue
}

// NewAlertWorker creates a worker; queue may be nil when report syncing is disabled.
func NewAlertWorker(loader services.SnapshotLoader, queue ports.SyncQueue) *AlertWorker {
	return &AlertWorker{loader: loader, queue: queue}
}

// HandleEvent is an amqp.EventHandler.
func (w *AlertWorker) HandleEvent(ctx context.Context, msg *amqp.EventMessage) error {
	_, err := w.Process(ctx, msg.Event())
	return err
}

// Process returns the alerts of the event month after logging each one.
func (w *AlertWorker) Process(ctx context.Context, e core.Event) ([]core.BudgetProgress, error) {
	slog.DebugContext(ctx, "Processing event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldEventType, e.Type,
		log.FieldUserID, e.UserID,
		log.FieldMonth, e.Month)

	snap, err := w.loader.Snapshot(ctx, e.UserID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	alerts := snap.Alerts(e.Month)
	for _, a := range alerts {
		slog.WarnContext(ctx, "Budget alert",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, e.UserID,
			log.FieldMonth, e.Month,
			log.FieldCategory, a.Budget.Category,
			log.FieldAmount, a.Budget.Amount.String(),
			"spent", a.Spent.String(),
			log.FieldPercentage, a.Percentage.StringFixed(1),
			"status", a.Status)
	}

	if w.queue != nil {
		if err := w.queue.EnqueueSync(ctx, e.UserID, e.Month); err != nil {
			return alerts, fmt.Errorf("enqueue report sync: %w", err)
		}
	}
	return alerts, nil
}
