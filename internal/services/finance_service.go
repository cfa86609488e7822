package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/budget"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/ports"
	"kakeibo/internal/report"
)

var (
	ErrMissingUser          = errors.New("missing user id")
	ErrMissingTransactionID = fmt.Errorf("%w: transaction id", core.ErrMissingField)
	errMissingTxFields      = fmt.Errorf("%w: missing required transaction fields", core.ErrMissingField)
)

// FinanceService orchestrates ledger operations across the store and the event publisher.
// Mutations are confirmed by the store first; events are best effort.
type FinanceService struct {
	store  ports.Store
	events ports.EventPublisher
	now    func() time.Time
}

// NewFinanceService wires a store and an optional event publisher (nil disables events).
func NewFinanceService(store ports.Store, events ports.EventPublisher) *FinanceService {
	return &FinanceService{store: store, events: events, now: time.Now}
}

// AddTransaction validates t, assigns an ID and stores it for userID.
func (s *FinanceService) AddTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	t, err := prepareTransaction(userID, t)
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()

	saved, err := s.store.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		log.FieldComponent, log.ComponentFinance,
		log.FieldUserID, userID,
		log.FieldTransactionID, saved.ID,
		log.FieldKind, saved.Kind,
		log.FieldAmount, saved.Amount.String(),
		log.FieldCategory, saved.Category)

	s.publish(ctx, core.EventTransactionCreated, userID, saved.Month())
	return saved, nil
}

func prepareTransaction(userID string, t core.Transaction) (core.Transaction, error) {
	if userID == "" {
		return core.Transaction{}, ErrMissingUser
	}
	if t.Kind == "" || t.Amount.IsZero() || strings.TrimSpace(t.Category) == "" || t.Date == "" {
		return core.Transaction{}, errMissingTxFields
	}
	t.UserID = userID
	t.Category = strings.TrimSpace(t.Category)
	t.ID = strings.TrimSpace(t.ID)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// ListTransactions returns the user's transactions, newest first.
func (s *FinanceService) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	core.SortTransactions(txs)
	return txs, nil
}

// DeleteTransaction removes a transaction. Deleting an unknown ID succeeds without an event.
func (s *FinanceService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(id) == "" {
		return ErrMissingTransactionID
	}

	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	var month core.Month
	for _, t := range txs {
		if t.ID == id {
			month = t.Month()
			break
		}
	}

	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if month == "" {
		slog.DebugContext(ctx, "Transaction already absent",
			log.FieldComponent, log.ComponentFinance,
			log.FieldUserID, userID,
			log.FieldTransactionID, id)
		return nil
	}

	slog.InfoContext(ctx, "Transaction deleted",
		log.FieldComponent, log.ComponentFinance,
		log.FieldUserID, userID,
		log.FieldTransactionID, id)

	s.publish(ctx, core.EventTransactionDeleted, userID, month)
	return nil
}

// ImportTransactions stores every transaction the user does not already hold
// and stops at the first failure. A transaction keeps the ID its source gave it,
// so importing the same rows again stores nothing. It returns how many were stored.
func (s *FinanceService) ImportTransactions(ctx context.Context, userID string, txs []core.Transaction) (int, error) {
	stored := 0
	var months []core.Month
	seen := make(map[core.Month]bool)
	defer func() {
		for _, m := range months {
			s.publish(ctx, core.EventTransactionCreated, userID, m)
		}
	}()

	for i, t := range txs {
		t, err := prepareTransaction(userID, t)
		if err != nil {
			return stored, fmt.Errorf("import transaction %d: %w", i+1, err)
		}
		ok, err := s.store.ImportTransaction(ctx, t)
		if err != nil {
			return stored, fmt.Errorf("import transaction %d: %w", i+1, err)
		}
		if !ok {
			continue
		}
		stored++
		if m := t.Month(); !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}

	slog.InfoContext(ctx, "Transactions imported",
		log.FieldComponent, log.ComponentFinance,
		log.FieldOperation, log.OpImport,
		log.FieldUserID, userID,
		log.FieldCount, stored,
		"skipped", len(txs)-stored)
	return stored, nil
}

// ImportFrom copies the user's transactions held by src into the store.
func (s *FinanceService) ImportFrom(ctx context.Context, src ports.TransactionSource, userID string) (int, error) {
	txs, err := src.ListTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read transaction source: %w", err)
	}
	return s.ImportTransactions(ctx, userID, txs)
}

// SetBudget creates or replaces the budget for (month, category).
func (s *FinanceService) SetBudget(ctx context.Context, userID, category string, amount decimal.Decimal, month core.Month) (core.Budget, error) {
	if userID == "" {
		return core.Budget{}, ErrMissingUser
	}
	res := budget.NewTracker(s.store, userID).SetBudget(ctx, category, amount, month)
	if !res.Success {
		return core.Budget{}, res.Err
	}
	s.publish(ctx, core.EventBudgetSet, userID, res.Budget.Month)
	return *res.Budget, nil
}

// DeleteBudget removes the budget at (month, category); a missing budget is not an error.
func (s *FinanceService) DeleteBudget(ctx context.Context, userID string, month core.Month, category string) error {
	if userID == "" {
		return ErrMissingUser
	}
	m, err := core.ParseMonth(string(month))
	if err != nil && month != "" {
		return err
	}
	res := budget.NewTracker(s.store, userID).DeleteBudget(ctx, m, category)
	if !res.Success {
		return res.Err
	}
	s.publish(ctx, core.EventBudgetDeleted, userID, m)
	return nil
}

// ListBudgets returns the user's budgets, newest month first.
func (s *FinanceService) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	tracker := budget.NewTracker(s.store, userID)
	if res := tracker.Load(ctx); !res.Success {
		return nil, res.Err
	}
	return tracker.Budgets(), nil
}

// Snapshot is everything the reports and budget views need for one user.
type Snapshot struct {
	UserID       string
	Transactions []core.Transaction
	Tracker      *budget.Tracker
}

// Snapshot loads transactions and budgets concurrently.
func (s *FinanceService) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	snap := &Snapshot{UserID: userID, Tracker: budget.NewTracker(s.store, userID)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		core.SortTransactions(txs)
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		if res := snap.Tracker.Load(gctx); !res.Success {
			return res.Err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Snapshot) Budgets() []core.Budget { return s.Tracker.Budgets() }

func (s *Snapshot) Progress(month core.Month) []core.BudgetProgress {
	return s.Tracker.GetBudgetProgress(month, s.Transactions)
}

func (s *Snapshot) Alerts(month core.Month) []core.BudgetProgress {
	return s.Tracker.GetAlerts(month, s.Transactions)
}

func (s *Snapshot) Monthly(month core.Month) core.MonthlyReport {
	return report.Monthly(s.Transactions, month)
}

func (s *Snapshot) Yearly(year int) core.YearlyReport {
	return report.Yearly(s.Transactions, year)
}

func (s *Snapshot) Compare(current, previous core.Month) core.ComparisonReport {
	return report.Compare(s.Transactions, current, previous)
}

// Categories returns the income and expense categories known to the store.
func (s *FinanceService) Categories(ctx context.Context) (income, expense []string, err error) {
	if income, err = s.store.ListCategories(ctx, core.Income); err != nil {
		return nil, nil, fmt.Errorf("list income categories: %w", err)
	}
	if expense, err = s.store.ListCategories(ctx, core.Expense); err != nil {
		return nil, nil, fmt.Errorf("list expense categories: %w", err)
	}
	return income, expense, nil
}

func (s *FinanceService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *FinanceService) publish(ctx context.Context, typ core.EventType, userID string, month core.Month) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping event",
			log.FieldComponent, log.ComponentFinance,
			log.FieldEventType, typ)
		return
	}
	e := core.Event{Type: typ, UserID: userID, Month: month, Timestamp: s.now().UTC()}
	if err := s.events.PublishEvent(ctx, e); err != nil {
		// The mutation is already stored.
		slog.ErrorContext(ctx, "Failed to publish event",
			log.FieldComponent, log.ComponentFinance,
			log.FieldEventType, typ,
			log.FieldUserID, userID,
			log.FieldMonth, month,
			log.FieldError, err)
	}
}

// Close closes the store and the event publisher when they hold resources.
func (s *FinanceService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.events.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}
	return errors.Join(errs...)
}
