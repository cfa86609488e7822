package budget

import (
	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// AlertThreshold is the consumption percentage at which a budget raises an alert.
var AlertThreshold = decimal.NewFromInt(80)

var percentCap = decimal.NewFromInt(100)

// Progress computes consumption for every budget of month.
// Spent counts expenses in the budget's category whose date starts with the month key.
func Progress(budgets []core.Budget, txs []core.Transaction, month core.Month) []core.BudgetProgress {
	spent := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Kind != core.Expense || !month.Contains(t.Date) {
			continue
		}
		spent[t.Category] = spent[t.Category].Add(t.Amount)
	}

	out := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		if b.Month != month {
			continue
		}
		s, ok := spent[b.Category]
		if !ok {
			s = decimal.Zero
		}
		out = append(out, progressOf(b, s))
	}
	return out
}

func progressOf(b core.Budget, spent decimal.Decimal) core.BudgetProgress {
	pct := core.Percent(spent, b.Amount)
	if pct.GreaterThan(percentCap) {
		pct = percentCap
	}
	p := core.BudgetProgress{
		Budget:       b,
		Spent:        spent,
		Remaining:    b.Amount.Sub(spent),
		Percentage:   pct,
		IsOverBudget: spent.GreaterThan(b.Amount),
	}
	p.Status = Status(p)
	return p
}

// Alerts keeps the entries at or past the threshold, or over budget.
func Alerts(progress []core.BudgetProgress) []core.BudgetProgress {
	out := make([]core.BudgetProgress, 0)
	for _, p := range progress {
		if p.IsOverBudget || p.Percentage.GreaterThanOrEqual(AlertThreshold) {
			out = append(out, p)
		}
	}
	return out
}

// Status buckets a progress entry.
func Status(p core.BudgetProgress) core.BudgetStatus {
	switch {
	case p.IsOverBudget:
		return core.StatusOver
	case p.Percentage.GreaterThanOrEqual(AlertThreshold):
		return core.StatusWarning
	default:
		return core.StatusOK
	}
}
