package core

import "github.com/shopspring/decimal"

// CategorySummary is the total and count of one category within a slice of transactions.
type CategorySummary struct {
	Category string          `json:"category" yaml:"category"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	Count    int             `json:"count" yaml:"count"`
}

type DailyAverages struct {
	Income  decimal.Decimal `json:"income" yaml:"income"`
	Expense decimal.Decimal `json:"expense" yaml:"expense"`
}

// MonthlyReport summarises a single YYYY-MM period.
type MonthlyReport struct {
	Month                    Month             `json:"month" yaml:"month"`
	TotalIncome              decimal.Decimal   `json:"totalIncome" yaml:"totalIncome"`
	TotalExpense             decimal.Decimal   `json:"totalExpense" yaml:"totalExpense"`
	NetAmount                decimal.Decimal   `json:"netAmount" yaml:"netAmount"`
	IncomeByCategory         []CategorySummary `json:"incomeByCategory" yaml:"incomeByCategory"`
	ExpenseByCategory        []CategorySummary `json:"expenseByCategory" yaml:"expenseByCategory"`
	TransactionCount         int               `json:"transactionCount" yaml:"transactionCount"`
	AverageTransactionAmount decimal.Decimal   `json:"averageTransactionAmount" yaml:"averageTransactionAmount"`
	TopIncomeCategory        *CategorySummary  `json:"topIncomeCategory" yaml:"topIncomeCategory"`
	TopExpenseCategory       *CategorySummary  `json:"topExpenseCategory" yaml:"topExpenseCategory"`
	DailyAverages            DailyAverages     `json:"dailyAverages" yaml:"dailyAverages"`
}

// MonthData is one row of a yearly report.
type MonthData struct {
	Month   Month           `json:"month" yaml:"month"`
	Income  decimal.Decimal `json:"income" yaml:"income"`
	Expense decimal.Decimal `json:"expense" yaml:"expense"`
	Net     decimal.Decimal `json:"net" yaml:"net"`
}

type MonthNet struct {
	Month Month           `json:"month" yaml:"month"`
	Net   decimal.Decimal `json:"net" yaml:"net"`
}

// Trends are year-over-year growth percentages.
type Trends struct {
	IncomeGrowth  decimal.Decimal `json:"incomeGrowth" yaml:"incomeGrowth"`
	ExpenseGrowth decimal.Decimal `json:"expenseGrowth" yaml:"expenseGrowth"`
}

type YearlyReport struct {
	Year              int               `json:"year" yaml:"year"`
	TotalIncome       decimal.Decimal   `json:"totalIncome" yaml:"totalIncome"`
	TotalExpense      decimal.Decimal   `json:"totalExpense" yaml:"totalExpense"`
	NetAmount         decimal.Decimal   `json:"netAmount" yaml:"netAmount"`
	MonthlyData       []MonthData       `json:"monthlyData" yaml:"monthlyData"`
	IncomeByCategory  []CategorySummary `json:"incomeByCategory" yaml:"incomeByCategory"`
	ExpenseByCategory []CategorySummary `json:"expenseByCategory" yaml:"expenseByCategory"`
	BestMonth         *MonthNet         `json:"bestMonth" yaml:"bestMonth"`
	WorstMonth        *MonthNet         `json:"worstMonth" yaml:"worstMonth"`
	Trends            Trends            `json:"trends" yaml:"trends"`
}

type Change struct {
	Amount     decimal.Decimal `json:"amount" yaml:"amount"`
	Percentage decimal.Decimal `json:"percentage" yaml:"percentage"`
}

type Changes struct {
	Income  Change `json:"income" yaml:"income"`
	Expense Change `json:"expense" yaml:"expense"`
	Net     Change `json:"net" yaml:"net"`
}

type ComparisonReport struct {
	Current  MonthlyReport `json:"current" yaml:"current"`
	Previous MonthlyReport `json:"previous" yaml:"previous"`
	Changes  Changes       `json:"changes" yaml:"changes"`
}

// BudgetStatus buckets a progress entry for display.
type BudgetStatus string

const (
	StatusOK      BudgetStatus = "ok"
	StatusWarning BudgetStatus = "warning"
	StatusOver    BudgetStatus = "over"
)

// BudgetProgress is the consumption of one budget in its month.
// Percentage is capped at 100; IsOverBudget compares the uncapped amounts.
type BudgetProgress struct {
	Budget       Budget          `json:"budget" yaml:"budget"`
	Spent        decimal.Decimal `json:"spent" yaml:"spent"`
	Remaining    decimal.Decimal `json:"remaining" yaml:"remaining"`
	Percentage   decimal.Decimal `json:"percentage" yaml:"percentage"`
	IsOverBudget bool            `json:"isOverBudget" yaml:"isOverBudget"`
	Status       BudgetStatus    `json:"status" yaml:"status"`
}
