// Package report builds monthly, yearly and comparison reports from transactions.
//
// Every function here is a pure transformation of its input: no I/O, no clock.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// GroupByCategory sums transactions per category.
// The result is ordered by amount descending; equal amounts keep first-seen order.
func GroupByCategory(txs []core.Transaction) []core.CategorySummary {
	index := make(map[string]int, len(txs))
	out := make([]core.CategorySummary, 0)
	for _, t := range txs {
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, core.CategorySummary{Category: t.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Amount.GreaterThan(out[b].Amount)
	})
	return out
}

// TopCategory returns the first summary with the largest amount, or nil.
func TopCategory(list []core.CategorySummary) *core.CategorySummary {
	if len(list) == 0 {
		return nil
	}
	top := list[0]
	for _, c := range list[1:] {
		if c.Amount.GreaterThan(top.Amount) {
			top = c
		}
	}
	return &top
}

func filterKind(txs []core.Transaction, k core.Kind) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if t.Kind == k {
			out = append(out, t)
		}
	}
	return out
}

func filterMonth(txs []core.Transaction, m core.Month) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if m.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

func filterYear(txs []core.Transaction, year int) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if y, ok := core.YearOf(t.Date); ok && y == year {
			out = append(out, t)
		}
	}
	return out
}

// totals returns income and expense sums of txs.
func totals(txs []core.Transaction) (income, expense decimal.Decimal) {
	income, expense = decimal.Zero, decimal.Zero
	for _, t := range txs {
		switch t.Kind {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense
}
