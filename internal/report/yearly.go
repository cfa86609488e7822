package report

import (
	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// Yearly builds the report for a calendar year, with growth measured against year-1.
func Yearly(txs []core.Transaction, year int) core.YearlyReport {
	inYear := filterYear(txs, year)
	totalIncome, totalExpense := totals(inYear)

	months := core.MonthsOfYear(year)
	monthly := make([]core.MonthData, 0, len(months))
	for _, m := range months {
		income, expense := totals(filterMonth(inYear, m))
		monthly = append(monthly, core.MonthData{
			Month:   m,
			Income:  income,
			Expense: expense,
			Net:     income.Sub(expense),
		})
	}

	best, worst := extremes(monthly)

	prevIncome, prevExpense := totals(filterYear(txs, year-1))

	return core.YearlyReport{
		Year:              year,
		TotalIncome:       totalIncome,
		TotalExpense:      totalExpense,
		NetAmount:         totalIncome.Sub(totalExpense),
		MonthlyData:       monthly,
		IncomeByCategory:  GroupByCategory(filterKind(inYear, core.Income)),
		ExpenseByCategory: GroupByCategory(filterKind(inYear, core.Expense)),
		BestMonth:         best,
		WorstMonth:        worst,
		Trends: core.Trends{
			IncomeGrowth:  growth(totalIncome, prevIncome),
			ExpenseGrowth: growth(totalExpense, prevExpense),
		},
	}
}

// extremes picks the highest and lowest net among months with any activity.
// The first month wins a tie.
func extremes(monthly []core.MonthData) (best, worst *core.MonthNet) {
	for _, m := range monthly {
		if m.Income.IsZero() && m.Expense.IsZero() {
			continue
		}
		if best == nil || m.Net.GreaterThan(best.Net) {
			best = &core.MonthNet{Month: m.Month, Net: m.Net}
		}
		if worst == nil || m.Net.LessThan(worst.Net) {
			worst = &core.MonthNet{Month: m.Month, Net: m.Net}
		}
	}
	return best, worst
}

// growth is the percentage change from baseline, or zero without a positive baseline.
func growth(current, baseline decimal.Decimal) decimal.Decimal {
	if !baseline.IsPositive() {
		return decimal.Zero
	}
	return core.Percent(current.Sub(baseline), baseline)
}
