package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
	"kakeibo/internal/transfer"
)

func newTxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage transactions",
	}
	cmd.AddCommand(
		newTxAddCmd(a),
		newTxListCmd(a),
		newTxDeleteCmd(a),
		newTxImportCmd(a),
		newTxExportCmd(a),
		newTxImportSheetCmd(a),
	)
	return cmd
}

func newTxAddCmd(a *app) *cobra.Command {
	var kind, amount, category, description, date string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an income or expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := core.ParseKind(kind)
			if err != nil {
				return err
			}
			amt, err := core.ParseAmount(amount)
			if err != nil {
				return err
			}
			if date == "" {
				date = a.now().Format(core.DateLayout)
			}
			t, err := a.finance.AddTransaction(cmd.Context(), a.userID, core.Transaction{
				Kind:        k,
				Amount:      amt,
				Category:    category,
				Description: description,
				Date:        date,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s %s %s on %s (%s)\n", t.Kind, t.Amount.StringFixed(2), t.Category, t.Date, t.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", string(core.Expense), "income or expense")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount, e.g. 12.50 or 12,50")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category")
	cmd.Flags().StringVarP(&description, "description", "d", "", "free text, up to 200 characters")
	cmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD (defaults to today)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newTxListCmd(a *app) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := a.transactions(cmd, month)
			if err != nil {
				return err
			}
			return writeTransactions(a.out, txs)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "only this YYYY-MM")
	return cmd
}

func newTxDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.finance.DeleteTransaction(cmd.Context(), a.userID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newTxImportCmd(a *app) *cobra.Command {
	var delimiter string
	var skipInvalid bool
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Import reads a CSV with the header date,type,category,amount,description
and an optional id column. Rows whose id is already stored are skipped, so an
exported file can be imported again safely. Invalid rows abort the import
unless --skip-invalid is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := csvOptions(delimiter)
			if err != nil {
				return err
			}
			txs, err := transfer.ReadCSVFile(args[0], a.userID, opts)
			if err != nil {
				if !skipInvalid || txs == nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Skipping invalid rows:\n%v\n", err)
			}
			n, err := a.finance.ImportTransactions(cmd.Context(), a.userID, txs)
			fmt.Fprintf(a.out, "Imported %d of %d transactions\n", n, len(txs))
			return err
		},
	}
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "field separator")
	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "import valid rows and report the rest")
	return cmd
}

func newTxExportCmd(a *app) *cobra.Command {
	var delimiter, month string
	cmd := &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Export transactions to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := csvOptions(delimiter)
			if err != nil {
				return err
			}
			txs, err := a.transactions(cmd, month)
			if err != nil {
				return err
			}
			if err := transfer.WriteCSVFile(args[0], txs, opts); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d transactions to %s\n", len(txs), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", "field separator")
	cmd.Flags().StringVarP(&month, "month", "m", "", "only this YYYY-MM")
	return cmd
}

func newTxImportSheetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-sheet",
		Short: "Import transactions from the configured Google spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := a.source(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.finance.ImportFrom(cmd.Context(), src, a.userID)
			fmt.Fprintf(a.out, "Imported %d transactions\n", n)
			return err
		},
	}
}

// transactions lists the user's transactions, optionally restricted to one month.
func (a *app) transactions(cmd *cobra.Command, month string) ([]core.Transaction, error) {
	txs, err := a.finance.ListTransactions(cmd.Context(), a.userID)
	if err != nil || month == "" {
		return txs, err
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	out := txs[:0]
	for _, t := range txs {
		if m.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func csvOptions(delimiter string) (transfer.Options, error) {
	if utf8.RuneCountInString(delimiter) != 1 {
		return transfer.Options{}, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
	}
	r, _ := utf8.DecodeRuneInString(delimiter)
	return transfer.Options{Delimiter: r}, nil
}

func writeTransactions(w io.Writer, txs []core.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION\tID")
	for _, t := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.Date, t.Kind, t.Category, t.Amount.StringFixed(2), t.Description, t.ID)
	}
	return tw.Flush()
}
