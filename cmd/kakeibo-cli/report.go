package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build monthly, yearly and comparison reports",
	}
	cmd.PersistentFlags().StringVarP(&format, "format", "f", "json", "json, yaml or csv; compare also takes table")

	monthly := &cobra.Command{
		Use:   "monthly",
		Short: "Totals and category breakdown for one month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			month, _ := cmd.Flags().GetString("month")
			m, err := a.month(month)
			if err != nil {
				return err
			}
			return a.export(cmd, format, func(s snapshot) any { return s.Monthly(m) })
		},
	}
	monthly.Flags().StringP("month", "m", "", "YYYY-MM (defaults to the current month)")

	yearly := &cobra.Command{
		Use:   "yearly",
		Short: "Month by month totals and trends for one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			if year == 0 {
				year = a.now().Year()
			}
			if year < 1 || year > 9999 {
				return fmt.Errorf("invalid year: %d", year)
			}
			return a.export(cmd, format, func(s snapshot) any { return s.Yearly(year) })
		},
	}
	yearly.Flags().IntP("year", "y", 0, "calendar year (defaults to the current year)")

	compare := &cobra.Command{
		Use:   "compare",
		Short: "Compare a month with an earlier one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			month, _ := cmd.Flags().GetString("month")
			previous, _ := cmd.Flags().GetString("previous")
			cur, err := a.month(month)
			if err != nil {
				return err
			}
			prev := report.PreviousMonth(cur)
			if previous != "" {
				if prev, err = a.month(previous); err != nil {
					return err
				}
			}
			if format == formatTable {
				snap, err := a.finance.Snapshot(cmd.Context(), a.userID)
				if err != nil {
					return err
				}
				return writeChanges(a.out, snap.Compare(cur, prev))
			}
			return a.export(cmd, format, func(s snapshot) any { return s.Compare(cur, prev) })
		},
	}
	compare.Flags().StringP("month", "m", "", "YYYY-MM (defaults to the current month)")
	compare.Flags().String("previous", "", "YYYY-MM (defaults to the month before --month)")

	cmd.AddCommand(monthly, yearly, compare)
	return cmd
}

type snapshot interface {
	Monthly(m core.Month) core.MonthlyReport
	Yearly(year int) core.YearlyReport
	Compare(current, previous core.Month) core.ComparisonReport
}

func (a *app) export(cmd *cobra.Command, format string, build func(snapshot) any) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	snap, err := a.finance.Snapshot(cmd.Context(), a.userID)
	if err != nil {
		return err
	}
	return report.Export(a.out, build(snap), f)
}

const formatTable = "table"

func writeChanges(w io.Writer, r core.ComparisonReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "METRIC\t%s\t%s\tCHANGE\tCHANGE %%\n", r.Current.Month, r.Previous.Month)
	rows := []struct {
		name      string
		cur, prev decimal.Decimal
		change    core.Change
	}{
		{"income", r.Current.TotalIncome, r.Previous.TotalIncome, r.Changes.Income},
		{"expense", r.Current.TotalExpense, r.Previous.TotalExpense, r.Changes.Expense},
		{"net", r.Current.NetAmount, r.Previous.NetAmount, r.Changes.Net},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			row.name,
			row.cur.StringFixed(2),
			row.prev.StringFixed(2),
			row.change.Amount.StringFixed(2),
			report.FormatPercent(row.change.Percentage))
	}
	return tw.Flush()
}
