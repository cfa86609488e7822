// Package transfer moves transactions in and out of CSV files.
package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

// Row is the CSV shape of a transaction. Amount stays a string so
// both "12.50" and "12,50" are accepted on import.
type Row struct {
	Date        string `csv:"date"`
	Type        string `csv:"type"`
	Category    string `csv:"category"`
	Amount      string `csv:"amount"`
	Description string `csv:"description"`
	ID          string `csv:"id,omitempty"`
}

// Options tune CSV parsing and output.
type Options struct {
	Delimiter rune
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}

// ToRow converts a transaction into its CSV row.
func ToRow(t core.Transaction) Row {
	return Row{
		Date:        t.Date,
		Type:        string(t.Kind),
		Category:    t.Category,
		Amount:      t.Amount.String(),
		Description: t.Description,
		ID:          t.ID,
	}
}

// Transaction converts a row for userID and validates it.
func (r Row) Transaction(userID string) (core.Transaction, error) {
	kind, err := core.ParseKind(r.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(r.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:          strings.TrimSpace(r.ID),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Category:    strings.TrimSpace(r.Category),
		Description: strings.TrimSpace(r.Description),
		Date:        strings.TrimSpace(r.Date),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// ReadCSV parses transactions for userID from r.
// Every valid row is returned; invalid rows are reported together in the error, by line number.
func ReadCSV(r io.Reader, userID string, opts Options) ([]core.Transaction, error) {
	reader := csv.NewReader(r)
	reader.Comma = opts.delimiter()
	reader.TrimLeadingSpace = true

	var rows []Row
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	var errs []error
	for i, row := range rows {
		t, err := row.Transaction(userID)
		if err != nil {
			// header is line 1
			errs = append(errs, fmt.Errorf("line %d: %w", i+2, err))
			continue
		}
		out = append(out, t)
	}
	return out, errors.Join(errs...)
}

// WriteCSV writes txs to w with a header row.
func WriteCSV(w io.Writer, txs []core.Transaction, opts Options) error {
	rows := make([]Row, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, ToRow(t))
	}

	writer := csv.NewWriter(w)
	writer.Comma = opts.delimiter()
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSVFile reads transactions for userID from path.
func ReadCSVFile(path, userID string, opts Options) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	txs, err := ReadCSV(f, userID, opts)
	slog.Info("Read transactions from CSV",
		log.FieldComponent, log.ComponentCLI,
		log.FieldOperation, log.OpImport,
		"file", path,
		log.FieldCount, len(txs),
		log.FieldSuccess, err == nil)
	return txs, err
}

// WriteCSVFile writes txs to path, creating parent directories.
func WriteCSVFile(path string, txs []core.Transaction, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	if err := WriteCSV(f, txs, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv file: %w", err)
	}

	slog.Info("Wrote transactions to CSV",
		log.FieldComponent, log.ComponentCLI,
		log.FieldOperation, log.OpExport,
		"file", path,
		log.FieldCount, len(txs))
	return nil
}
