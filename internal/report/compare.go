package report

import (
	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// Compare reports the change from previous to current.
func Compare(txs []core.Transaction, current, previous core.Month) core.ComparisonReport {
	cur := Monthly(txs, current)
	prev := Monthly(txs, previous)
	return core.ComparisonReport{
		Current:  cur,
		Previous: prev,
		Changes: core.Changes{
			Income:  change(cur.TotalIncome, prev.TotalIncome),
			Expense: change(cur.TotalExpense, prev.TotalExpense),
			Net:     change(cur.NetAmount, prev.NetAmount),
		},
	}
}

// PreviousMonth returns the calendar month before m.
func PreviousMonth(m core.Month) core.Month {
	return m.Previous()
}

func change(current, previous decimal.Decimal) core.Change {
	amount := current.Sub(previous)
	return core.Change{
		Amount:     amount,
		Percentage: core.Percent(amount, previous),
	}
}
