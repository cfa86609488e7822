package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/core"
)

// Store keeps transactions and budgets in process memory.
type Store struct {
	mu      sync.Mutex
	income  []string
	expense []string
	txs     []core.Transaction
	budgets map[string]core.Budget
	now     func() time.Time
}

func New(income, expense []string) *Store {
	return &Store{
		income:  dedupe(income),
		expense: dedupe(expense),
		budgets: make(map[string]core.Budget),
		now:     time.Now,
	}
}

// NewFromFiles seeds categories from seed_income_categories.txt and
// seed_expense_categories.txt under base, falling back to the defaults.
func NewFromFiles(base string) *Store {
	income := readLines(filepath.Join(base, "seed_income_categories.txt"))
	expense := readLines(filepath.Join(base, "seed_expense_categories.txt"))
	if len(income) == 0 {
		income = core.DefaultIncomeCategories
	}
	if len(expense) == 0 {
		expense = core.DefaultExpenseCategories
	}
	return New(income, expense)
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) ImportTransaction(_ context.Context, t core.Transaction) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.ID == t.ID && existing.UserID == t.UserID {
			return false, nil
		}
	}
	s.txs = append(s.txs, t)
	return true, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	core.SortTransactions(out)
	return out, nil
}

// DeleteTransaction removes the transaction if present.
func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id && t.UserID == userID {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0)
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

// UpsertBudget writes b under its key, keeping ID and CreatedAt of an existing entry.
func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if existing, ok := s.budgets[b.Key()]; ok {
		b.ID = existing.ID
		b.CreatedAt = existing.CreatedAt
	} else {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	s.budgets[b.Key()] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, userID string, month core.Month, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.budgets, core.Budget{UserID: userID, Month: month, Category: category}.Key())
	return nil
}

// ListCategories returns the seeded categories for kind.
func (s *Store) ListCategories(_ context.Context, kind core.Kind) ([]string, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == core.Income {
		return append([]string(nil), s.income...), nil
	}
	return append([]string(nil), s.expense...), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
