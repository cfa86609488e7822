package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
)

type fakeStore struct {
	mu        sync.Mutex
	budgets   map[string]core.Budget
	listErr   error
	upsertErr error
	deleteErr error
	upserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{budgets: make(map[string]core.Budget)}
}

func (f *fakeStore) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Budget
	for _, b := range f.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return core.Budget{}, f.upsertErr
	}
	if existing, ok := f.budgets[b.Key()]; ok {
		b.ID = existing.ID
		b.CreatedAt = existing.CreatedAt
	}
	f.budgets[b.Key()] = b
	return b, nil
}

func (f *fakeStore) DeleteBudget(_ context.Context, userID string, month core.Month, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.budgets, core.Budget{UserID: userID, Month: month, Category: category}.Key())
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(amount, category, date string) core.Transaction {
	return core.Transaction{Kind: core.Expense, Amount: dec(amount), Category: category, Date: date}
}

func newTestTracker(store Store) *Tracker {
	tr := NewTracker(store, "user-1")
	clock := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	tr.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}
	return tr
}

func TestProgressOverBudget(t *testing.T) {
	budgets := []core.Budget{{Category: "Food", Amount: dec("1000"), Month: "2024-01"}}
	txs := []core.Transaction{
		expense("700", "Food", "2024-01-03"),
		expense("500", "Food", "2024-01-28"),
		expense("999", "Food", "2024-02-01"),
		{Kind: core.Income, Amount: dec("50"), Category: "Food", Date: "2024-01-10"},
	}

	got := Progress(budgets, txs, "2024-01")
	require.Len(t, got, 1)
	p := got[0]
	assert.True(t, dec("1200").Equal(p.Spent), "spent %s", p.Spent)
	assert.True(t, dec("100").Equal(p.Percentage), "percentage %s", p.Percentage)
	assert.True(t, p.IsOverBudget)
	assert.True(t, dec("-200").Equal(p.Remaining), "remaining %s", p.Remaining)
	assert.Equal(t, core.StatusOver, p.Status)
}

func TestProgressOnlyMatchingMonth(t *testing.T) {
	budgets := []core.Budget{
		{Category: "Food", Amount: dec("100"), Month: "2024-01"},
		{Category: "Food", Amount: dec("100"), Month: "2024-02"},
		{Category: "Transport", Amount: dec("50"), Month: "2024-01"},
	}
	got := Progress(budgets, nil, "2024-01")
	require.Len(t, got, 2)
	for _, p := range got {
		assert.True(t, p.Spent.IsZero())
		assert.True(t, p.Percentage.IsZero())
		assert.False(t, p.IsOverBudget)
		assert.Equal(t, core.StatusOK, p.Status)
		assert.True(t, p.Remaining.Equal(p.Budget.Amount))
	}
}

func TestAlertsBoundary(t *testing.T) {
	budgets := []core.Budget{
		{Category: "Food", Amount: dec("1000"), Month: "2024-01"},
		{Category: "Transport", Amount: dec("1000"), Month: "2024-01"},
		{Category: "Fun", Amount: dec("100"), Month: "2024-01"},
	}
	txs := []core.Transaction{
		expense("800", "Food", "2024-01-02"),
		expense("799", "Transport", "2024-01-02"),
		expense("100", "Fun", "2024-01-02"),
	}

	progress := Progress(budgets, txs, "2024-01")
	alerts := Alerts(progress)

	var categories []string
	for _, a := range alerts {
		categories = append(categories, a.Budget.Category)
	}
	assert.Equal(t, []string{"Food", "Fun"}, categories)
	assert.Equal(t, core.StatusWarning, alerts[0].Status)
	assert.Equal(t, core.StatusWarning, alerts[1].Status, "exactly at the cap is not over budget")
	assert.True(t, dec("79.9").Equal(progress[1].Percentage))
}

func TestAlertsEmpty(t *testing.T) {
	got := Alerts(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTrackerSetBudget(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	tr := newTestTracker(store)

	res := tr.SetBudget(ctx, " Food ", dec("300"), "2024-03")
	require.True(t, res.Success, res.Error())
	require.NotNil(t, res.Budget)
	first := *res.Budget
	assert.Equal(t, "Food", first.Category)
	assert.Equal(t, "user-1", first.UserID)
	assert.NotEmpty(t, first.ID)

	res = tr.SetBudget(ctx, "Food", dec("450"), "2024-03")
	require.True(t, res.Success, res.Error())
	second := *res.Budget
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	budgets := tr.Budgets()
	require.Len(t, budgets, 1)
	assert.True(t, dec("450").Equal(budgets[0].Amount))
}

func TestTrackerSetBudgetValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		category string
		amount   string
		month    core.Month
		want     error
	}{
		{"missing category", "", "10", "2024-01", ErrRequired},
		{"missing month", "Food", "10", "", ErrRequired},
		{"zero amount", "Food", "0", "2024-01", ErrRequired},
		{"negative amount", "Food", "-5", "2024-01", core.ErrInvalidAmount},
		{"bad month", "Food", "10", "2024-13", core.ErrInvalidMonth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tr := newTestTracker(store)
			res := tr.SetBudget(ctx, tt.category, dec(tt.amount), tt.month)
			assert.False(t, res.Success)
			assert.ErrorIs(t, res.Err, tt.want)
			assert.True(t, core.IsValidation(res.Err))
			assert.Zero(t, store.upserts, "validation must run before the store is called")
			assert.Empty(t, tr.Budgets())
		})
	}
	assert.Equal(t, "missing required field: category, amount, and month are required", ErrRequired.Error())
}

func TestTrackerStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	tr := newTestTracker(store)
	require.True(t, tr.SetBudget(ctx, "Food", dec("100"), "2024-01").Success)

	store.upsertErr = errors.New("network down")
	res := tr.SetBudget(ctx, "Food", dec("999"), "2024-01")
	assert.False(t, res.Success)
	assert.ErrorContains(t, res.Err, "network down")
	assert.False(t, core.IsValidation(res.Err))
	assert.True(t, dec("100").Equal(tr.Budgets()[0].Amount), "state must not change on failure")

	store.deleteErr = errors.New("unauthorized")
	res = tr.DeleteBudget(ctx, "2024-01", "Food")
	assert.False(t, res.Success)
	assert.Len(t, tr.Budgets(), 1)

	store.listErr = errors.New("timeout")
	res = tr.Load(ctx)
	assert.False(t, res.Success)
	assert.Len(t, tr.Budgets(), 1)
}

func TestTrackerDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	tr := newTestTracker(store)
	require.True(t, tr.SetBudget(ctx, "Food", dec("100"), "2024-01").Success)
	require.True(t, tr.SetBudget(ctx, "Food", dec("100"), "2024-02").Success)

	assert.True(t, tr.DeleteBudget(ctx, "2024-01", "Food").Success)
	assert.True(t, tr.DeleteBudget(ctx, "2024-01", "Food").Success)

	budgets := tr.Budgets()
	require.Len(t, budgets, 1)
	assert.Equal(t, core.Month("2024-02"), budgets[0].Month)
}

func TestTrackerDeleteTrimsCategory(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	tr := newTestTracker(store)
	require.True(t, tr.SetBudget(ctx, " Food ", dec("100"), "2024-01").Success)

	assert.True(t, tr.DeleteBudget(ctx, "2024-01", " Food").Success)
	assert.Empty(t, tr.Budgets())

	reloaded := newTestTracker(store)
	require.True(t, reloaded.Load(ctx).Success)
	assert.Empty(t, reloaded.Budgets())
}

func TestTrackerLoadAndAlerts(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seed := newTestTracker(store)
	require.True(t, seed.SetBudget(ctx, "Food", dec("200"), "2024-05").Success)
	require.True(t, seed.SetBudget(ctx, "Transport", dec("100"), "2024-05").Success)
	store.budgets["other"] = core.Budget{UserID: "user-2", Category: "Food", Amount: dec("1"), Month: "2024-05"}

	tr := newTestTracker(store)
	require.True(t, tr.Load(ctx).Success)
	require.Len(t, tr.Budgets(), 2)

	txs := []core.Transaction{
		expense("190", "Food", "2024-05-10"),
		expense("10", "Transport", "2024-05-10"),
	}
	progress := tr.GetBudgetProgress("2024-05", txs)
	assert.Len(t, progress, 2)

	alerts := tr.GetAlerts("2024-05", txs)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Food", alerts[0].Budget.Category)
	assert.True(t, dec("95").Equal(alerts[0].Percentage))
}
