package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kakeibo/internal/log"
	"kakeibo/internal/ports"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending items (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of items to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before an item is marked failed (default: 3)
	MaxRetries int

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration

	// StaleAfter is how long an item may stay in processing before it is retried (default: 5m)
	StaleAfter time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
		StaleAfter:      5 * time.Minute,
	}
}

// SnapshotLoader loads a user's ledger for report building.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, userID string) (*Snapshot, error)
}

// SyncProcessor publishes queued monthly reports to an external destination.
type SyncProcessor struct {
	queue     ports.SyncQueue
	loader    SnapshotLoader
	publisher ports.ReportPublisher
	config    SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(
	queue ports.SyncQueue,
	loader SnapshotLoader,
	publisher ports.ReportPublisher,
	config SyncProcessorConfig,
) *SyncProcessor {
	return &SyncProcessor{
		queue:     queue,
		loader:    loader,
		publisher: publisher,
		config:    config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Items left in processing by a crashed worker go back to pending.
	if n, err := p.queue.ResetStaleProcessing(ctx, p.config.StaleAfter); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale processing items",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
	} else if n > 0 {
		slog.InfoContext(ctx, "Reset stale processing items",
			log.FieldComponent, log.ComponentWorker,
			log.FieldCount, n)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		log.FieldComponent, log.ComponentWorker,
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully",
			log.FieldComponent, log.ComponentWorker)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out",
			log.FieldComponent, log.ComponentWorker)
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.ProcessBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// ProcessBatch handles one batch of pending items and returns how many were published.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	items, err := p.queue.DequeueSyncBatch(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue sync batch",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
		return 0
	}

	if len(items) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing sync batch",
		log.FieldComponent, log.ComponentWorker,
		log.FieldCount, len(items))

	published := 0
	for _, item := range items {
		select {
		case <-p.stopCh:
			return published
		case <-ctx.Done():
			return published
		default:
		}

		if err := p.queue.MarkSyncProcessing(ctx, item.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark item as processing",
				log.FieldComponent, log.ComponentWorker,
				"id", item.ID,
				log.FieldError, err)
			continue
		}

		if err := p.processItem(ctx, item); err != nil {
			p.handleFailure(ctx, item, err)
			continue
		}
		p.handleSuccess(ctx, item)
		published++
	}
	return published
}

// processItem publishes the monthly report and budget progress for one (user, month).
func (p *SyncProcessor) processItem(ctx context.Context, item ports.SyncItem) error {
	snap, err := p.loader.Snapshot(ctx, item.UserID)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	monthly := snap.Monthly(item.Month)
	progress := snap.Progress(item.Month)

	if err := p.publisher.PublishMonthlyReport(ctx, item.UserID, monthly, progress); err != nil {
		return fmt.Errorf("publish monthly report: %w", err)
	}

	slog.InfoContext(ctx, "Published monthly report",
		log.FieldComponent, log.ComponentWorker,
		log.FieldUserID, item.UserID,
		log.FieldMonth, item.Month,
		log.FieldCount, monthly.TransactionCount)
	return nil
}

func (p *SyncProcessor) handleSuccess(ctx context.Context, item ports.SyncItem) {
	if err := p.queue.MarkSyncCompleted(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync complete",
			log.FieldComponent, log.ComponentWorker,
			"id", item.ID,
			log.FieldError, err)
	}
}

// handleFailure retries the item until MaxRetries attempts have been made.
func (p *SyncProcessor) handleFailure(ctx context.Context, item ports.SyncItem, processErr error) {
	attempt := item.Attempts + 1
	slog.WarnContext(ctx, "Sync processing failed",
		log.FieldComponent, log.ComponentWorker,
		"id", item.ID,
		log.FieldUserID, item.UserID,
		log.FieldMonth, item.Month,
		"attempt", attempt,
		log.FieldError, processErr)

	if attempt >= p.config.MaxRetries {
		if err := p.queue.MarkSyncFailed(ctx, item.ID, processErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark sync as failed",
				log.FieldComponent, log.ComponentWorker,
				"id", item.ID,
				log.FieldError, err)
		}
		slog.ErrorContext(ctx, "Sync item failed permanently after max retries",
			log.FieldComponent, log.ComponentWorker,
			"id", item.ID,
			"attempts", attempt)
		return
	}

	if err := p.queue.IncrementSyncAttempt(ctx, item.ID, processErr.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to increment sync attempt",
			log.FieldComponent, log.ComponentWorker,
			"id", item.ID,
			log.FieldError, err)
	}
}

func (p *SyncProcessor) cleanupCompleted(ctx context.Context) {
	n, err := p.queue.CleanupCompletedSyncs(ctx, p.config.CleanupAge)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to cleanup completed syncs",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "Cleaned up completed syncs",
			log.FieldComponent, log.ComponentWorker,
			log.FieldCount, n)
	}
}

// Stats returns current queue statistics
func (p *SyncProcessor) Stats(ctx context.Context) (ports.SyncQueueStats, error) {
	return p.queue.SyncQueueStats(ctx)
}
