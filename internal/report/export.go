package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"kakeibo/internal/core"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a user-supplied name to a Format, defaulting to JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatCSV:
		return Format(s), nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/json"
	}
}

// Export writes v to w in the given format.
// CSV is flattened: category rows for monthly reports, month rows for yearly reports,
// metric rows for comparisons and one row per budget for progress lists.
func Export(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		rows, err := csvRows(v)
		if err != nil {
			return err
		}
		if err := gocsv.Marshal(rows, w); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

type categoryRow struct {
	Kind     string `csv:"type"`
	Category string `csv:"category"`
	Amount   string `csv:"amount"`
	Count    int    `csv:"count"`
}

type monthRow struct {
	Month   string `csv:"month"`
	Income  string `csv:"income"`
	Expense string `csv:"expense"`
	Net     string `csv:"net"`
}

type changeRow struct {
	Metric     string `csv:"metric"`
	Current    string `csv:"current"`
	Previous   string `csv:"previous"`
	Amount     string `csv:"change"`
	Percentage string `csv:"change_pct"`
}

type progressRow struct {
	Month        string `csv:"month"`
	Category     string `csv:"category"`
	Budget       string `csv:"budget"`
	Spent        string `csv:"spent"`
	Remaining    string `csv:"remaining"`
	Percentage   string `csv:"percentage"`
	IsOverBudget bool   `csv:"over_budget"`
	Status       string `csv:"status"`
}

func csvRows(v any) (any, error) {
	switch r := v.(type) {
	case core.MonthlyReport:
		return categoryRows(r.IncomeByCategory, r.ExpenseByCategory), nil
	case *core.MonthlyReport:
		return categoryRows(r.IncomeByCategory, r.ExpenseByCategory), nil
	case core.YearlyReport:
		return monthRows(r.MonthlyData), nil
	case *core.YearlyReport:
		return monthRows(r.MonthlyData), nil
	case core.ComparisonReport:
		return changeRows(r), nil
	case *core.ComparisonReport:
		return changeRows(*r), nil
	case []core.BudgetProgress:
		return progressRows(r), nil
	default:
		return nil, fmt.Errorf("csv export not supported for %T", v)
	}
}

func categoryRows(income, expense []core.CategorySummary) []categoryRow {
	rows := make([]categoryRow, 0, len(income)+len(expense))
	for _, c := range income {
		rows = append(rows, categoryRow{Kind: string(core.Income), Category: c.Category, Amount: c.Amount.String(), Count: c.Count})
	}
	for _, c := range expense {
		rows = append(rows, categoryRow{Kind: string(core.Expense), Category: c.Category, Amount: c.Amount.String(), Count: c.Count})
	}
	return rows
}

func monthRows(data []core.MonthData) []monthRow {
	rows := make([]monthRow, 0, len(data))
	for _, m := range data {
		rows = append(rows, monthRow{
			Month:   m.Month.String(),
			Income:  m.Income.String(),
			Expense: m.Expense.String(),
			Net:     m.Net.String(),
		})
	}
	return rows
}

func changeRows(r core.ComparisonReport) []changeRow {
	row := func(metric string, cur, prev fmt.Stringer, c core.Change) changeRow {
		return changeRow{
			Metric:     metric,
			Current:    cur.String(),
			Previous:   prev.String(),
			Amount:     c.Amount.String(),
			Percentage: c.Percentage.StringFixed(2),
		}
	}
	return []changeRow{
		row("income", r.Current.TotalIncome, r.Previous.TotalIncome, r.Changes.Income),
		row("expense", r.Current.TotalExpense, r.Previous.TotalExpense, r.Changes.Expense),
		row("net", r.Current.NetAmount, r.Previous.NetAmount, r.Changes.Net),
	}
}

func progressRows(list []core.BudgetProgress) []progressRow {
	rows := make([]progressRow, 0, len(list))
	for _, p := range list {
		rows = append(rows, progressRow{
			Month:        p.Budget.Month.String(),
			Category:     p.Budget.Category,
			Budget:       p.Budget.Amount.String(),
			Spent:        p.Spent.String(),
			Remaining:    p.Remaining.String(),
			Percentage:   p.Percentage.StringFixed(2),
			IsOverBudget: p.IsOverBudget,
			Status:       string(p.Status),
		})
	}
	return rows
}

// FormatPercent renders a signed percentage with one decimal, e.g. "+12.5%".
func FormatPercent(p decimal.Decimal) string {
	s := p.StringFixed(1)
	if !p.IsNegative() {
		s = "+" + s
	}
	return s + "%"
}
