package core

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// DateLayout is the calendar date format stored on every transaction.
const DateLayout = "2006-01-02"

type (
	Kind string

	Transaction struct {
		ID          string          `json:"id" yaml:"id"`
		UserID      string          `json:"userId,omitempty" yaml:"userId,omitempty"`
		Kind        Kind            `json:"type" yaml:"type"`
		Amount      decimal.Decimal `json:"amount" yaml:"amount"`
		Category    string          `json:"category" yaml:"category"`
		Description string          `json:"description" yaml:"description"`
		Date        string          `json:"date" yaml:"date"` // YYYY-MM-DD
	}

	Budget struct {
		ID        string          `json:"id" yaml:"id"`
		UserID    string          `json:"userId" yaml:"userId"`
		Category  string          `json:"category" yaml:"category"`
		Amount    decimal.Decimal `json:"amount" yaml:"amount"`
		Month     Month           `json:"month" yaml:"month"`
		CreatedAt time.Time       `json:"createdAt" yaml:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt" yaml:"updatedAt"`
	}
)

var (
	ErrInvalidAmount   = errors.New("amount must be greater than 0")
	ErrInvalidKind     = errors.New("invalid transaction type")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrMissingField    = errors.New("missing required field")
	ErrDescriptionSize = errors.New("description too long (max 200 characters)")
	ErrNotFound        = errors.New("not found")
)

var validationErrors = []error{
	ErrInvalidAmount,
	ErrInvalidKind,
	ErrEmptyCategory,
	ErrInvalidDate,
	ErrInvalidMonth,
	ErrMissingField,
	ErrDescriptionSize,
}

// IsValidation reports whether err is caused by rejected user input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// ParseKind normalises user input into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionSize
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Month returns the month key the transaction falls in by prefix.
func (t Transaction) Month() Month {
	if len(t.Date) < 7 {
		return ""
	}
	return Month(t.Date[:7])
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" || b.Month == "" {
		return ErrMissingField
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, err := ParseMonth(string(b.Month)); err != nil {
		return err
	}
	return nil
}

// Key identifies the single live budget for a user, month and category.
func (b Budget) Key() string {
	return b.UserID + "|" + string(b.Month) + "|" + b.Category
}

// SortTransactions orders txs newest first, then by ID for a stable listing.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date > txs[j].Date
		}
		return txs[i].ID < txs[j].ID
	})
}
