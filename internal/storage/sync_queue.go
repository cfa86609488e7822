package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/ports"
)

const (
	SyncStatusPending    = "pending"
	SyncStatusProcessing = "processing"
	SyncStatusCompleted  = "completed"
	SyncStatusFailed     = "failed"
)

// EnqueueSync queues a report sync for (user, month) unless one is already pending.
func (r *SQLiteRepository) EnqueueSync(ctx context.Context, userID string, month core.Month) error {
	now := r.stamp()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO report_sync_queue (user_id, month, status, created_at, updated_at)
		SELECT ?, ?, 'pending', ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM report_sync_queue
			WHERE user_id = ? AND month = ? AND status = 'pending'
		)`, userID, string(month), now, now, userID, string(month))
	if err != nil {
		return fmt.Errorf("enqueue report sync: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.DebugContext(ctx, "Report sync already pending",
			log.FieldComponent, log.ComponentStorage,
			log.FieldUserID, userID,
			log.FieldMonth, month)
	}
	return nil
}

// DequeueSyncBatch returns up to limit pending items, oldest first.
func (r *SQLiteRepository) DequeueSyncBatch(ctx context.Context, limit int) ([]ports.SyncItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, month, status, attempts, last_error, created_at, updated_at
		FROM report_sync_queue
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var items []ports.SyncItem
	for rows.Next() {
		var (
			it                   ports.SyncItem
			month                string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&it.ID, &it.UserID, &month, &it.Status, &it.Attempts, &it.LastError, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		it.Month = core.Month(month)
		it.CreatedAt = parseTime(createdAt)
		it.UpdatedAt = parseTime(updatedAt)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE report_sync_queue SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		status, reason, r.stamp(), id)
	if err != nil {
		return fmt.Errorf("mark sync %d %s: %w", id, status, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncProcessing(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncStatusProcessing, "")
}

func (r *SQLiteRepository) MarkSyncCompleted(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncStatusCompleted, "")
}

func (r *SQLiteRepository) MarkSyncFailed(ctx context.Context, id int64, reason string) error {
	slog.WarnContext(ctx, "Report sync marked failed",
		log.FieldComponent, log.ComponentStorage,
		"id", id,
		log.FieldError, reason)
	return r.setSyncStatus(ctx, id, SyncStatusFailed, reason)
}

// IncrementSyncAttempt records a failed try and puts the item back to pending.
func (r *SQLiteRepository) IncrementSyncAttempt(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE report_sync_queue
		SET attempts = attempts + 1, status = 'pending', last_error = ?, updated_at = ?
		WHERE id = ?`, reason, r.stamp(), id)
	if err != nil {
		return fmt.Errorf("increment sync attempt %d: %w", id, err)
	}
	return nil
}

// ResetStaleProcessing returns items stuck in processing longer than olderThan to pending.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(r.now().Add(-olderThan))
	res, err := r.db.ExecContext(ctx, `
		UPDATE report_sync_queue SET status = 'pending', updated_at = ?
		WHERE status = 'processing' AND updated_at < ?`, r.stamp(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stale sync items: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) CleanupCompletedSyncs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(r.now().Add(-olderThan))
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM report_sync_queue WHERE status = 'completed' AND updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup sync queue: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) SyncQueueStats(ctx context.Context) (ports.SyncQueueStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM report_sync_queue GROUP BY status`)
	if err != nil {
		return ports.SyncQueueStats{}, fmt.Errorf("query sync queue stats: %w", err)
	}
	defer rows.Close()

	var stats ports.SyncQueueStats
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return ports.SyncQueueStats{}, fmt.Errorf("scan sync queue stats: %w", err)
		}
		switch status {
		case SyncStatusPending:
			stats.Pending = n
		case SyncStatusProcessing:
			stats.Processing = n
		case SyncStatusCompleted:
			stats.Completed = n
		case SyncStatusFailed:
			stats.Failed = n
		}
	}
	return stats, rows.Err()
}
