package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/ports"
)

// Options configure the Sheets client.
type Options struct {
	SpreadsheetID      string
	ReportSheetName    string // base name; the year is prefixed, e.g. "2024 Reports"
	TransactionsSheet  string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	reportBase        string
	transactionsSheet string
}

var (
	_ ports.ReportPublisher   = (*Client)(nil)
	_ ports.TransactionSource = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return newClient(svc, opts), nil
}

func newClient(svc *gsheet.Service, opts Options) *Client {
	report := strings.TrimSpace(opts.ReportSheetName)
	if report == "" {
		report = "Reports"
	}
	txs := strings.TrimSpace(opts.TransactionsSheet)
	if txs == "" {
		txs = "Transactions"
	}
	return &Client{
		svc:               svc,
		spreadsheetID:     strings.TrimSpace(opts.SpreadsheetID),
		reportBase:        report,
		transactionsSheet: txs,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither JSON nor file is given.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var (
		credentialsJSON []byte
		err             error
	)
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		log.FieldComponent, log.ComponentSheets,
		"credentials_size", len(credentialsJSON))

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// PublishMonthlyReport writes the month's report into the user's yearly report sheet.
// Each month owns a fixed block of columns, so republishing a month overwrites only that block.
func (c *Client) PublishMonthlyReport(ctx context.Context, userID string, report core.MonthlyReport, progress []core.BudgetProgress) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	year, month := report.Month.Year(), report.Month.Number()
	if month == 0 {
		return fmt.Errorf("publish report: %w: %q", core.ErrInvalidMonth, report.Month)
	}

	title := reportSheetName(c.reportBase, userID, year)
	if err := c.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := blockRange(title, month)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	vr := &gsheet.ValueRange{Values: reportRows(userID, report, progress)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Published monthly report",
		log.FieldComponent, log.ComponentSheets,
		log.FieldUserID, userID,
		log.FieldMonth, report.Month,
		"range", rng)
	return nil
}

// ensureSheet adds a sheet titled title unless it already exists.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created report sheet",
		log.FieldComponent, log.ComponentSheets,
		"sheet", title)
	return nil
}

// ListTransactions reads the transactions sheet.
// Columns: Date, Type, Category, Amount, Description, ID, User. Rows assigned to
// another user, header rows and unparsable rows are skipped.
func (c *Client) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := quoteSheet(c.transactionsSheet) + "!A:G"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = toStrings(row)
	}
	out, skipped := parseTransactionRows(rows, userID)
	core.SortTransactions(out)

	slog.DebugContext(ctx, "Read transactions from sheet",
		log.FieldComponent, log.ComponentSheets,
		log.FieldUserID, userID,
		log.FieldCount, len(out),
		"skipped", skipped)
	return out, nil
}

// parseTransactionRows parses rows in sheet order. Rows without an ID column
// get one derived from their content; the nth repeat of identical content is
// suffixed with ":n" so each row keeps a distinct ID across reads.
func parseTransactionRows(rows [][]string, userID string) ([]core.Transaction, int) {
	out := make([]core.Transaction, 0, len(rows))
	seen := make(map[string]int)
	skipped := 0
	for _, cols := range rows {
		t, ok := parseTransactionRow(cols, userID)
		if !ok {
			skipped++
			continue
		}
		if safeGet(cols, 5) == "" {
			seen[t.ID]++
			if n := seen[t.ID]; n > 1 {
				t.ID += ":" + strconv.Itoa(n)
			}
		}
		out = append(out, t)
	}
	return out, skipped
}

func parseTransactionRow(cols []string, userID string) (core.Transaction, bool) {
	if len(cols) < 4 {
		return core.Transaction{}, false
	}
	if owner := safeGet(cols, 6); owner != "" && owner != userID {
		return core.Transaction{}, false
	}
	kind, err := core.ParseKind(cols[1])
	if err != nil {
		return core.Transaction{}, false
	}
	amount, err := core.ParseAmount(cols[3])
	if err != nil {
		return core.Transaction{}, false
	}
	t := core.Transaction{
		ID:          safeGet(cols, 5),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Category:    cols[2],
		Description: safeGet(cols, 4),
		Date:        cols[0],
	}
	if t.Validate() != nil {
		return core.Transaction{}, false
	}
	if t.ID == "" {
		t.ID = "sheet:" + t.Date + ":" + t.Category + ":" + t.Amount.String()
	}
	return t, true
}

const blockWidth = 7 // six data columns and a spacer

func reportSheetName(base, userID string, year int) string {
	return yearPrefixedName(strings.TrimSpace(base+" "+userID), year)
}

// blockRange returns the A1 range of month's column block, 1-based month.
func blockRange(sheet string, month int) string {
	first := (month - 1) * blockWidth
	last := first + blockWidth - 2
	return fmt.Sprintf("%s!%s1:%s", quoteSheet(sheet), colName(first), colName(last))
}

// quoteSheet quotes a sheet title for an A1 range, doubling embedded quotes.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// colName converts a 0-based column index to A1 letters.
func colName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func reportRows(userID string, r core.MonthlyReport, progress []core.BudgetProgress) [][]any {
	rows := [][]any{
		{"Month", r.Month.String()},
		{"User", userID},
		{"Income", money(r.TotalIncome)},
		{"Expense", money(r.TotalExpense)},
		{"Net", money(r.NetAmount)},
		{"Transactions", r.TransactionCount},
		{"Average", money(r.AverageTransactionAmount)},
		{"Daily income", money(r.DailyAverages.Income)},
		{"Daily expense", money(r.DailyAverages.Expense)},
		{},
		{"Expense by category", "Amount", "Count"},
	}
	for _, c := range r.ExpenseByCategory {
		rows = append(rows, []any{c.Category, money(c.Amount), c.Count})
	}
	rows = append(rows, []any{}, []any{"Income by category", "Amount", "Count"})
	for _, c := range r.IncomeByCategory {
		rows = append(rows, []any{c.Category, money(c.Amount), c.Count})
	}
	if len(progress) > 0 {
		rows = append(rows, []any{}, []any{"Budget", "Amount", "Spent", "Remaining", "Used %", "Status"})
		for _, p := range progress {
			rows = append(rows, []any{
				p.Budget.Category,
				money(p.Budget.Amount),
				money(p.Spent),
				money(p.Remaining),
				money(p.Percentage),
				string(p.Status),
			})
		}
	}
	return rows
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return strings.TrimSpace(arr[idx])
}
