// Package budget tracks monthly spending caps per category for a single user.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

var (
	ErrRequired      = fmt.Errorf("%w: category, amount, and month are required", core.ErrMissingField)
	ErrAmountTooLow  = core.ErrInvalidAmount
	errTrackerNoUser = errors.New("tracker has no user")
)

// Store is the persistence collaborator for budgets.
// UpsertBudget must be atomic on (user, month, category) and keep CreatedAt of an existing row.
type Store interface {
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	DeleteBudget(ctx context.Context, userID string, month core.Month, category string) error
}

// Result reports the outcome of a call into the store.
// Collaborator failures are returned here rather than as a Go error so the caller decides on retry.
type Result struct {
	Success bool
	Budget  *core.Budget
	Err     error
}

func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func failed(err error) Result { return Result{Err: err} }

// Tracker holds the budgets of one user.
// State changes only after the store confirms a write.
type Tracker struct {
	store  Store
	userID string
	now    func() time.Time

	mu      sync.RWMutex
	budgets []core.Budget
}

func NewTracker(store Store, userID string) *Tracker {
	return &Tracker{store: store, userID: userID, now: time.Now}
}

// Load replaces the in-memory budgets with the store's.
func (t *Tracker) Load(ctx context.Context) Result {
	if t.userID == "" {
		return failed(errTrackerNoUser)
	}
	list, err := t.store.ListBudgets(ctx, t.userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load budgets",
			log.FieldComponent, log.ComponentBudget,
			log.FieldUserID, t.userID,
			log.FieldError, err)
		return failed(fmt.Errorf("load budgets: %w", err))
	}
	t.mu.Lock()
	t.budgets = sortBudgets(list)
	t.mu.Unlock()
	return Result{Success: true}
}

// SetBudget creates or updates the budget for (month, category).
func (t *Tracker) SetBudget(ctx context.Context, category string, amount decimal.Decimal, month core.Month) Result {
	category = strings.TrimSpace(category)
	if category == "" || month == "" || amount.IsZero() {
		return failed(ErrRequired)
	}
	if !amount.IsPositive() {
		return failed(ErrAmountTooLow)
	}
	m, err := core.ParseMonth(string(month))
	if err != nil {
		return failed(err)
	}

	now := t.now().UTC()
	b := core.Budget{
		ID:        uuid.NewString(),
		UserID:    t.userID,
		Category:  category,
		Amount:    amount,
		Month:     m,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.Validate(); err != nil {
		return failed(err)
	}

	saved, err := t.store.UpsertBudget(ctx, b)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save budget",
			log.FieldComponent, log.ComponentBudget,
			log.FieldUserID, t.userID,
			log.FieldMonth, m,
			log.FieldCategory, category,
			log.FieldError, err)
		return failed(fmt.Errorf("save budget: %w", err))
	}

	t.mu.Lock()
	t.budgets = sortBudgets(replace(t.budgets, saved))
	t.mu.Unlock()

	slog.InfoContext(ctx, "Budget set",
		log.FieldComponent, log.ComponentBudget,
		log.FieldUserID, t.userID,
		log.FieldMonth, m,
		log.FieldCategory, category,
		log.FieldAmount, amount.String())
	return Result{Success: true, Budget: &saved}
}

// DeleteBudget removes the budget at (month, category). Deleting a missing budget succeeds.
func (t *Tracker) DeleteBudget(ctx context.Context, month core.Month, category string) Result {
	category = strings.TrimSpace(category)
	if category == "" || month == "" {
		return failed(ErrRequired)
	}
	if err := t.store.DeleteBudget(ctx, t.userID, month, category); err != nil && !errors.Is(err, core.ErrNotFound) {
		slog.ErrorContext(ctx, "Failed to delete budget",
			log.FieldComponent, log.ComponentBudget,
			log.FieldUserID, t.userID,
			log.FieldMonth, month,
			log.FieldCategory, category,
			log.FieldError, err)
		return failed(fmt.Errorf("delete budget: %w", err))
	}

	t.mu.Lock()
	kept := t.budgets[:0:0]
	for _, b := range t.budgets {
		if b.Month == month && b.Category == category {
			continue
		}
		kept = append(kept, b)
	}
	t.budgets = kept
	t.mu.Unlock()
	return Result{Success: true}
}

// Budgets returns a copy of the loaded budgets.
func (t *Tracker) Budgets() []core.Budget {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]core.Budget, len(t.budgets))
	copy(out, t.budgets)
	return out
}

// GetBudgetProgress computes consumption of month's budgets against txs.
func (t *Tracker) GetBudgetProgress(month core.Month, txs []core.Transaction) []core.BudgetProgress {
	return Progress(t.Budgets(), txs, month)
}

// GetAlerts returns the budgets of month at or above the alert threshold.
func (t *Tracker) GetAlerts(month core.Month, txs []core.Transaction) []core.BudgetProgress {
	return Alerts(t.GetBudgetProgress(month, txs))
}

func replace(list []core.Budget, b core.Budget) []core.Budget {
	out := make([]core.Budget, 0, len(list)+1)
	for _, existing := range list {
		if existing.Month == b.Month && existing.Category == b.Category {
			continue
		}
		out = append(out, existing)
	}
	return append(out, b)
}

// sortBudgets orders by month descending, then category.
func sortBudgets(list []core.Budget) []core.Budget {
	out := append([]core.Budget(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].Category < out[j].Category
	})
	return out
}
