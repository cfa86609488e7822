// Package ports declares the outbound interfaces the services depend on.
package ports

import (
	"context"
	"time"

	"kakeibo/internal/core"
)

type (
	TransactionStore interface {
		// ListTransactions returns the user's transactions, newest first.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// ImportTransaction stores t unless the user already holds a transaction
		// with its ID, and reports whether it was stored.
		ImportTransaction(ctx context.Context, t core.Transaction) (bool, error)
		// DeleteTransaction succeeds when the transaction does not exist.
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	// BudgetStore persists budgets keyed by (user, month, category).
	BudgetStore interface {
		ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
		// UpsertBudget is atomic per key and keeps the original ID and CreatedAt.
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, userID string, month core.Month, category string) error
	}

	CategoryReader interface {
		ListCategories(ctx context.Context, kind core.Kind) ([]string, error)
	}

	// Store is everything a backend must provide.
	Store interface {
		TransactionStore
		BudgetStore
		CategoryReader
		Ping(ctx context.Context) error
	}

	// ReportPublisher pushes a rendered month to an external destination.
	ReportPublisher interface {
		PublishMonthlyReport(ctx context.Context, userID string, report core.MonthlyReport, progress []core.BudgetProgress) error
	}

	// TransactionSource reads transactions held outside the store.
	TransactionSource interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	EventPublisher interface {
		PublishEvent(ctx context.Context, e core.Event) error
	}
)

// SyncItem is a pending report sync for one user and month.
type SyncItem struct {
	ID        int64
	UserID    string
	Month     core.Month
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncQueueStats counts queue rows by status.
type SyncQueueStats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// SyncQueue is the durable work list behind report publishing.
type SyncQueue interface {
	EnqueueSync(ctx context.Context, userID string, month core.Month) error
	DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error)
	MarkSyncProcessing(ctx context.Context, id int64) error
	MarkSyncCompleted(ctx context.Context, id int64) error
	MarkSyncFailed(ctx context.Context, id int64, reason string) error
	IncrementSyncAttempt(ctx context.Context, id int64, reason string) error
	ResetStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error)
	CleanupCompletedSyncs(ctx context.Context, olderThan time.Duration) (int64, error)
	SyncQueueStats(ctx context.Context) (SyncQueueStats, error)
}
