package report

import (
	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// Monthly builds the report for month from the full transaction set.
// Transactions are selected by date prefix.
func Monthly(txs []core.Transaction, month core.Month) core.MonthlyReport {
	inMonth := filterMonth(txs, month)
	incomeTxs := filterKind(inMonth, core.Income)
	expenseTxs := filterKind(inMonth, core.Expense)

	totalIncome := core.Sum(incomeTxs)
	totalExpense := core.Sum(expenseTxs)

	incomeBy := GroupByCategory(incomeTxs)
	expenseBy := GroupByCategory(expenseTxs)

	count := len(inMonth)
	avg := decimal.Zero
	if count > 0 {
		avg = totalIncome.Add(totalExpense).Div(decimal.NewFromInt(int64(count)))
	}

	daily := core.DailyAverages{Income: decimal.Zero, Expense: decimal.Zero}
	if days := month.Days(); days > 0 {
		d := decimal.NewFromInt(int64(days))
		daily.Income = totalIncome.Div(d)
		daily.Expense = totalExpense.Div(d)
	}

	return core.MonthlyReport{
		Month:                    month,
		TotalIncome:              totalIncome,
		TotalExpense:             totalExpense,
		NetAmount:                totalIncome.Sub(totalExpense),
		IncomeByCategory:         incomeBy,
		ExpenseByCategory:        expenseBy,
		TransactionCount:         count,
		AverageTransactionAmount: avg,
		TopIncomeCategory:        TopCategory(incomeBy),
		TopExpenseCategory:       TopCategory(expenseBy),
		DailyAverages:            daily,
	}
}
