package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

func TestMemoryStoreTransactions(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)

	add := func(user, date string) core.Transaction {
		t.Helper()
		tx, err := s.AddTransaction(ctx, core.Transaction{
			UserID:   user,
			Kind:     core.Expense,
			Amount:   decimal.NewFromInt(10),
			Category: "Food",
			Date:     date,
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		return tx
	}

	first := add("u1", "2024-01-05")
	add("u1", "2024-03-01")
	add("u2", "2024-02-01")

	if first.ID == "" {
		t.Fatal("expected generated ID")
	}

	list, err := s.ListTransactions(ctx, "u1")
	if err != nil || len(list) != 2 {
		t.Fatalf("unexpected list: %v err=%v", list, err)
	}
	if list[0].Date != "2024-03-01" {
		t.Fatalf("expected newest first, got %v", list)
	}

	if err := s.DeleteTransaction(ctx, "u2", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if list, _ = s.ListTransactions(ctx, "u1"); len(list) != 2 {
		t.Fatal("another user must not delete u1's transaction")
	}
	for i := 0; i < 2; i++ {
		if err := s.DeleteTransaction(ctx, "u1", first.ID); err != nil {
			t.Fatalf("delete #%d: %v", i, err)
		}
	}
	if list, _ = s.ListTransactions(ctx, "u1"); len(list) != 1 {
		t.Fatalf("expected 1 left, got %d", len(list))
	}
}

func TestMemoryStoreImportTransactionSkipsKnownIDs(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)

	tx := core.Transaction{ID: "row-1", UserID: "u1", Kind: core.Expense, Amount: decimal.NewFromInt(10), Category: "Food", Date: "2024-01-05"}
	for i, want := range []bool{true, false} {
		stored, err := s.ImportTransaction(ctx, tx)
		if err != nil {
			t.Fatalf("import #%d: %v", i, err)
		}
		if stored != want {
			t.Fatalf("import #%d: stored = %v, want %v", i, stored, want)
		}
	}
	tx.UserID = "u2"
	if stored, _ := s.ImportTransaction(ctx, tx); !stored {
		t.Fatal("same id for another user should be stored")
	}

	list, _ := s.ListTransactions(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("expected 1 transaction for u1, got %d", len(list))
	}
}

func TestMemoryStoreRejectsInvalidTransaction(t *testing.T) {
	_, err := New(nil, nil).AddTransaction(context.Background(), core.Transaction{Kind: core.Income, Category: "Salary", Date: "2024-01-01"})
	if err != core.ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMemoryStoreUpsertBudgetKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	b := core.Budget{UserID: "u1", Category: "Food", Amount: decimal.NewFromInt(100), Month: "2024-01"}
	first, err := s.UpsertBudget(ctx, b)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	b.Amount = decimal.NewFromInt(200)
	second, err := s.UpsertBudget(ctx, b)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.ID != first.ID || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("identity not preserved: first=%+v second=%+v", first, second)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updatedAt not refreshed")
	}

	list, _ := s.ListBudgets(ctx, "u1")
	if len(list) != 1 || !list[0].Amount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("unexpected budgets: %+v", list)
	}

	for i := 0; i < 2; i++ {
		if err := s.DeleteBudget(ctx, "u1", "2024-01", "Food"); err != nil {
			t.Fatalf("delete #%d: %v", i, err)
		}
	}
	if list, _ = s.ListBudgets(ctx, "u1"); len(list) != 0 {
		t.Fatalf("expected no budgets, got %+v", list)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewFromFiles(dir)
	income, _ := s.ListCategories(ctx, core.Income)
	expense, _ := s.ListCategories(ctx, core.Expense)
	if len(income) != len(core.DefaultIncomeCategories) || len(expense) != len(core.DefaultExpenseCategories) {
		t.Fatalf("expected defaults when files missing: %v %v", income, expense)
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("seed_income_categories.txt", "# header\nSalary\nGifts\nSalary\n\n")
	mustWrite("seed_expense_categories.txt", "Rent\n  Rent  \nFood\n")

	s = NewFromFiles(dir)
	income, _ = s.ListCategories(ctx, core.Income)
	if len(income) != 2 || income[0] != "Salary" || income[1] != "Gifts" {
		t.Fatalf("unexpected income categories: %v", income)
	}
	expense, _ = s.ListCategories(ctx, core.Expense)
	if len(expense) != 2 || expense[0] != "Rent" || expense[1] != "Food" {
		t.Fatalf("unexpected expense categories: %v", expense)
	}

	if _, err := s.ListCategories(ctx, core.Kind("transfer")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
