package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
)

func newBudgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly category budgets",
	}
	cmd.AddCommand(
		newBudgetSetCmd(a),
		newBudgetDeleteCmd(a),
		newBudgetListCmd(a),
		newBudgetProgressCmd(a, false),
		newBudgetProgressCmd(a, true),
	)
	return cmd
}

func newBudgetSetCmd(a *app) *cobra.Command {
	var category, amount, month string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the budget for a category and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amt, err := core.ParseAmount(amount)
			if err != nil {
				return err
			}
			m, err := a.month(month)
			if err != nil {
				return err
			}
			b, err := a.finance.SetBudget(cmd.Context(), a.userID, category, amt, m)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Budget %s %s set to %s\n", b.Month, b.Category, b.Amount.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "expense category")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "monthly limit")
	cmd.Flags().StringVarP(&month, "month", "m", "", "YYYY-MM (defaults to the current month)")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newBudgetDeleteCmd(a *app) *cobra.Command {
	var category, month string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the budget for a category and month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.month(month)
			if err != nil {
				return err
			}
			if err := a.finance.DeleteBudget(cmd.Context(), a.userID, m, category); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Budget %s %s deleted\n", m, category)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "expense category")
	cmd.Flags().StringVarP(&month, "month", "m", "", "YYYY-MM (defaults to the current month)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newBudgetListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets, newest month first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			budgets, err := a.finance.ListBudgets(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MONTH\tCATEGORY\tAMOUNT")
			for _, b := range budgets {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Month, b.Category, b.Amount.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

// newBudgetProgressCmd builds "progress", or "alerts" which keeps only warning and over entries.
func newBudgetProgressCmd(a *app, alertsOnly bool) *cobra.Command {
	var month string
	use, short := "progress", "Show spending against each budget"
	if alertsOnly {
		use, short = "alerts", "Show budgets at 80% or more"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.month(month)
			if err != nil {
				return err
			}
			snap, err := a.finance.Snapshot(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			list := snap.Progress(m)
			if alertsOnly {
				list = snap.Alerts(m)
			}
			return writeProgress(a.out, list)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "YYYY-MM (defaults to the current month)")
	return cmd
}

// month parses s, defaulting to the current month when empty.
func (a *app) month(s string) (core.Month, error) {
	if s == "" {
		return core.MonthOf(a.now()), nil
	}
	return core.ParseMonth(s)
}

func writeProgress(w io.Writer, list []core.BudgetProgress) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tBUDGET\tSPENT\tREMAINING\tUSED\tSTATUS")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Budget.Category,
			p.Budget.Amount.StringFixed(2),
			p.Spent.StringFixed(2),
			p.Remaining.StringFixed(2),
			p.Percentage.StringFixed(1)+"%",
			p.Status)
	}
	return tw.Flush()
}
