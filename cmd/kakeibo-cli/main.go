// Command kakeibo-cli manages a ledger from the terminal against the configured backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/ports"
	"kakeibo/internal/services"
	gsheet "kakeibo/internal/sheets/google"
)

// ledger is the subset of the finance service the commands use.
type ledger interface {
	AddTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	ImportTransactions(ctx context.Context, userID string, txs []core.Transaction) (int, error)
	ImportFrom(ctx context.Context, src ports.TransactionSource, userID string) (int, error)
	SetBudget(ctx context.Context, userID, category string, amount decimal.Decimal, month core.Month) (core.Budget, error)
	DeleteBudget(ctx context.Context, userID string, month core.Month, category string) error
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
	Snapshot(ctx context.Context, userID string) (*services.Snapshot, error)
	Close() error
}

type app struct {
	userID string
	out    io.Writer
	now    func() time.Time

	// open builds the service on first use; tests set finance directly.
	open    func(ctx context.Context) (ledger, error)
	finance ledger
	source  func(ctx context.Context) (ports.TransactionSource, error)
}

func main() {
	a := &app{
		out:  os.Stdout,
		now:  time.Now,
		open:   openLedger,
		source: sheetSource,
	}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func openLedger(ctx context.Context) (ledger, error) {
	cfg, logger := cli.LoadConfig(log.ComponentCLI)
	built, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return built.Finance, nil
}

// sheetSource reads the Transactions tab of the configured spreadsheet.
func sheetSource(ctx context.Context) (ports.TransactionSource, error) {
	cfg := config.Load()
	if !cfg.SheetsEnabled() {
		return nil, fmt.Errorf("GOOGLE_SPREADSHEET_ID is not set")
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		ReportSheetName:    cfg.GoogleReportSheetName,
		TransactionsSheet:  cfg.GoogleTransactionsSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

var _ ledger = (*services.FinanceService)(nil)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "kakeibo-cli",
		Short:         "Record transactions, budgets and reports",
		Long:          `kakeibo-cli works on the same store as the kakeibo server. Configuration comes from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.userID == "" {
				return fmt.Errorf("--user is required")
			}
			if a.finance != nil {
				return nil
			}
			f, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			a.finance = f
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.finance == nil {
				return nil
			}
			return a.finance.Close()
		},
	}
	root.PersistentFlags().StringVarP(&a.userID, "user", "u", os.Getenv("KAKEIBO_USER"), "user id (defaults to $KAKEIBO_USER)")
	root.SetOut(a.out)

	root.AddCommand(newTxCmd(a), newBudgetCmd(a), newReportCmd(a))
	return root
}
