package services

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
	"kakeibo/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
	err    error
	closed bool
}

func (p *recordingPublisher) PublishEvent(_ context.Context, e core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func (p *recordingPublisher) types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(t *testing.T) (*FinanceService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := NewFinanceService(memory.New(core.DefaultIncomeCategories, core.DefaultExpenseCategories), pub)
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc, pub
}

func expense(amount, category, date string) core.Transaction {
	return core.Transaction{Kind: core.Expense, Amount: decimal.RequireFromString(amount), Category: category, Date: date}
}

func TestFinanceService_AddTransaction(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	saved, err := svc.AddTransaction(ctx, "u1", expense("12.50", " Food ", "2024-03-02"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, "Food", saved.Category)

	require.Len(t, pub.events, 1)
	assert.Equal(t, core.EventTransactionCreated, pub.events[0].Type)
	assert.Equal(t, core.Month("2024-03"), pub.events[0].Month)
	assert.Equal(t, "u1", pub.events[0].UserID)
}

func TestFinanceService_AddTransactionValidation(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		user string
		tx   core.Transaction
		want error
	}{
		{"missing user", "", expense("1", "Food", "2024-03-01"), ErrMissingUser},
		{"missing amount", "u1", core.Transaction{Kind: core.Expense, Category: "Food", Date: "2024-03-01"}, core.ErrMissingField},
		{"missing category", "u1", expense("1", "  ", "2024-03-01"), core.ErrMissingField},
		{"negative amount", "u1", expense("-1", "Food", "2024-03-01"), core.ErrInvalidAmount},
		{"bad kind", "u1", core.Transaction{Kind: "gift", Amount: decimal.NewFromInt(1), Category: "Food", Date: "2024-03-01"}, core.ErrInvalidKind},
		{"bad date", "u1", expense("1", "Food", "2024-13-01"), core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddTransaction(ctx, tt.user, tt.tx)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, pub.events)

	_, err := svc.AddTransaction(ctx, "u1", core.Transaction{Kind: core.Income, Date: "2024-03-01"})
	assert.ErrorContains(t, err, "missing required transaction fields")
}

func TestFinanceService_ListIsSortedAndScoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, d := range []string{"2024-01-05", "2024-03-01", "2024-02-10"} {
		_, err := svc.AddTransaction(ctx, "u1", expense("1", "Food", d))
		require.NoError(t, err)
	}
	_, err := svc.AddTransaction(ctx, "u2", expense("1", "Food", "2024-04-01"))
	require.NoError(t, err)

	txs, err := svc.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "2024-03-01", txs[0].Date)
	assert.Equal(t, "2024-02-10", txs[1].Date)
	assert.Equal(t, "2024-01-05", txs[2].Date)
}

func TestFinanceService_DeleteTransactionIsIdempotent(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	saved, err := svc.AddTransaction(ctx, "u1", expense("5", "Food", "2024-02-01"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, "u1", saved.ID))
	require.NoError(t, svc.DeleteTransaction(ctx, "u1", saved.ID))
	assert.ErrorIs(t, svc.DeleteTransaction(ctx, "u1", ""), core.ErrMissingField)

	assert.Equal(t, []core.EventType{core.EventTransactionCreated, core.EventTransactionDeleted}, pub.types())
	assert.Equal(t, core.Month("2024-02"), pub.events[1].Month)

	txs, err := svc.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestFinanceService_Budgets(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	b, err := svc.SetBudget(ctx, "u1", "Food", decimal.NewFromInt(300), "2024-03")
	require.NoError(t, err)
	assert.Equal(t, core.Month("2024-03"), b.Month)

	_, err = svc.SetBudget(ctx, "u1", "Food", decimal.NewFromInt(-5), "2024-03")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	list, err := svc.ListBudgets(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteBudget(ctx, "u1", "2024-03", "Food"))
	assert.ErrorIs(t, svc.DeleteBudget(ctx, "u1", "March", "Food"), core.ErrInvalidMonth)

	list, err = svc.ListBudgets(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, []core.EventType{core.EventBudgetSet, core.EventBudgetDeleted}, pub.types())
}

func TestFinanceService_Snapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddTransaction(ctx, "u1", expense("250", "Food", "2024-03-05"))
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, "u1", core.Transaction{Kind: core.Income, Amount: decimal.NewFromInt(1000), Category: "Salary", Date: "2024-03-01"})
	require.NoError(t, err)
	_, err = svc.SetBudget(ctx, "u1", "Food", decimal.NewFromInt(300), "2024-03")
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, snap.Transactions, 2)
	assert.Len(t, snap.Budgets(), 1)

	progress := snap.Progress("2024-03")
	require.Len(t, progress, 1)
	assert.True(t, progress[0].Spent.Equal(decimal.NewFromInt(250)))
	assert.Len(t, snap.Alerts("2024-03"), 1)

	monthly := snap.Monthly("2024-03")
	assert.True(t, monthly.NetAmount.Equal(decimal.NewFromInt(750)))

	_, err = svc.Snapshot(ctx, "")
	assert.ErrorIs(t, err, ErrMissingUser)
}

type failingStore struct {
	*memory.Store
}

func (failingStore) ListTransactions(context.Context, string) ([]core.Transaction, error) {
	return nil, errors.New("disk on fire")
}

func TestFinanceService_SnapshotPropagatesStoreErrors(t *testing.T) {
	svc := NewFinanceService(failingStore{memory.New(nil, nil)}, nil)
	_, err := svc.Snapshot(context.Background(), "u1")
	assert.ErrorContains(t, err, "disk on fire")
}

func TestFinanceService_PublishFailureDoesNotFailMutation(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = errors.New("broker down")

	_, err := svc.AddTransaction(context.Background(), "u1", expense("1", "Food", "2024-03-01"))
	require.NoError(t, err)

	txs, err := svc.ListTransactions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

type staticSource []core.Transaction

func (s staticSource) ListTransactions(context.Context, string) ([]core.Transaction, error) {
	return s, nil
}

func TestFinanceService_ImportFrom(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	n, err := svc.ImportFrom(ctx, staticSource{expense("1", "Food", "2024-01-01"), expense("2", "Transport", "2024-01-02")}, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.ImportTransactions(ctx, "u1", []core.Transaction{expense("1", "Food", "2024-01-03"), expense("0", "Food", "2024-01-04")})
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestFinanceService_ImportTwiceStoresOnce(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	row := expense("100", "Food", "2024-01-05")
	row.ID = "sheet:2024-01-05:Food:100"
	src := staticSource{row}

	n, err := svc.ImportFrom(ctx, src, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.ImportFrom(ctx, src, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	txs, err := svc.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, row.ID, txs[0].ID)

	snap, err := svc.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(snap.Monthly("2024-01").TotalExpense))

	assert.Equal(t, []core.EventType{core.EventTransactionCreated}, pub.types())
}

func TestFinanceService_Categories(t *testing.T) {
	svc, _ := newTestService(t)
	income, expense, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Contains(t, income, "Salary")
	assert.Contains(t, expense, "Food")
}

func TestFinanceService_CloseClosesPublisher(t *testing.T) {
	svc, pub := newTestService(t)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}
