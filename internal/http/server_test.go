package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/store/memory"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewFinanceService(memory.New(core.DefaultIncomeCategories, core.DefaultExpenseCategories), nil)
	srv := NewServer(Options{RateLimitRPS: 100, RateLimitBurst: 100}, svc)
	srv.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body, user string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	var resp apiResponse
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	}
	return rr, resp
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	rr, _ := do(t, srv, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.Contains(t, rr.Body.String(), "2024-03-15T10:00:00Z")

	rr, resp := do(t, srv, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Success)
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newTestServer(t)

	rr, _ := do(t, srv, http.MethodGet, "/healthz", "", "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestMissingUserIsUnauthorized(t *testing.T) {
	srv := newTestServer(t)

	rr, resp := do(t, srv, http.MethodGet, "/api/transactions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "X-User-ID")
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr, resp := do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"12,50","category":"Food","description":"lunch","date":"2024-03-02"}`, "u1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created core.Transaction
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "12.5", created.Amount.String())
	assert.Equal(t, "/api/transactions/"+created.ID, rr.Header().Get("Location"))

	// a missing date defaults to today
	rr, resp = do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","amount":1000,"category":"Salary"}`, "u1")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var income core.Transaction
	require.NoError(t, json.Unmarshal(resp.Data, &income))
	assert.Equal(t, "2024-03-15", income.Date)

	rr, resp = do(t, srv, http.MethodGet, "/api/transactions", "", "u1")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []core.Transaction
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "2024-03-15", list[0].Date)

	rr, resp = do(t, srv, http.MethodGet, "/api/transactions", "", "u2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))

	rr, _ = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "", "u1")
	require.Equal(t, http.StatusOK, rr.Code)
	rr, _ = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "", "u1")
	require.Equal(t, http.StatusOK, rr.Code, "delete is idempotent")

	_, resp = do(t, srv, http.MethodGet, "/api/transactions?month=2024-03", "", "u1")
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1, "cache must be invalidated after mutations")
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", `{"type":`, "invalid JSON body"},
		{"negative amount", `{"type":"expense","amount":"-5","category":"Food","date":"2024-03-01"}`, "amount must be greater than 0"},
		{"bad kind", `{"type":"gift","amount":"5","category":"Food","date":"2024-03-01"}`, "invalid transaction type"},
		{"missing fields", `{"type":"expense","date":"2024-03-01"}`, "missing required transaction fields"},
		{"bad date", `{"type":"expense","amount":"5","category":"Food","date":"03/01/2024"}`, "invalid date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := do(t, srv, http.MethodPost, "/api/transactions", tt.body, "u1")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.wantErr)
		})
	}
}

func TestBudgetsProgressAndAlerts(t *testing.T) {
	srv := newTestServer(t)

	rr, _ := do(t, srv, http.MethodPost, "/api/budgets", `{"category":"Food","amount":"100","month":"2024-03"}`, "u1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr, _ = do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"85","category":"Food","date":"2024-03-03"}`, "u1")
	require.Equal(t, http.StatusCreated, rr.Code)

	_, resp := do(t, srv, http.MethodGet, "/api/budgets/progress", "", "u1")
	var progress []core.BudgetProgress
	require.NoError(t, json.Unmarshal(resp.Data, &progress))
	require.Len(t, progress, 1)
	assert.Equal(t, "85", progress[0].Percentage.String())
	assert.Equal(t, core.StatusWarning, progress[0].Status)

	_, resp = do(t, srv, http.MethodGet, "/api/budgets/alerts?month=2024-03", "", "u1")
	var alerts []core.BudgetProgress
	require.NoError(t, json.Unmarshal(resp.Data, &alerts))
	assert.Len(t, alerts, 1)

	_, resp = do(t, srv, http.MethodGet, "/api/budgets/alerts?month=2024-02", "", "u1")
	assert.JSONEq(t, `[]`, string(resp.Data))

	rr, resp = do(t, srv, http.MethodPost, "/api/budgets", `{"category":"Food","amount":"0","month":"2024-03"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, resp.Success)

	rr, _ = do(t, srv, http.MethodPost, "/api/budgets", `{"category":"Food","amount":"10","month":"March"}`, "u1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, srv, http.MethodDelete, "/api/budgets/2024-03/Food", "", "u1")
	require.Equal(t, http.StatusOK, rr.Code)

	_, resp = do(t, srv, http.MethodGet, "/api/budgets", "", "u1")
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func seedReports(t *testing.T, srv *Server) {
	t.Helper()
	for _, body := range []string{
		`{"type":"income","amount":"2000","category":"Salary","date":"2024-03-01"}`,
		`{"type":"expense","amount":"100","category":"Food","date":"2024-03-05"}`,
		`{"type":"expense","amount":"50","category":"Food","date":"2024-03-20"}`,
		`{"type":"income","amount":"1000","category":"Salary","date":"2024-02-01"}`,
		`{"type":"expense","amount":"400","category":"Housing","date":"2023-12-01"}`,
	} {
		rr, _ := do(t, srv, http.MethodPost, "/api/transactions", body, "u1")
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
}

func TestReports(t *testing.T) {
	srv := newTestServer(t)
	seedReports(t, srv)

	_, resp := do(t, srv, http.MethodGet, "/api/reports/monthly", "", "u1")
	var monthly core.MonthlyReport
	require.NoError(t, json.Unmarshal(resp.Data, &monthly))
	assert.Equal(t, core.Month("2024-03"), monthly.Month)
	assert.Equal(t, "1850", monthly.NetAmount.String())
	assert.Equal(t, 3, monthly.TransactionCount)

	_, resp = do(t, srv, http.MethodGet, "/api/reports/yearly?year=2024", "", "u1")
	var yearly core.YearlyReport
	require.NoError(t, json.Unmarshal(resp.Data, &yearly))
	assert.Len(t, yearly.MonthlyData, 12)
	assert.Equal(t, "3000", yearly.TotalIncome.String())

	_, resp = do(t, srv, http.MethodGet, "/api/reports/compare?current=2024-03", "", "u1")
	var cmp core.ComparisonReport
	require.NoError(t, json.Unmarshal(resp.Data, &cmp))
	assert.Equal(t, core.Month("2024-02"), cmp.Previous.Month)
	assert.Equal(t, "1000", cmp.Changes.Income.Amount.String())
	assert.Equal(t, "100", cmp.Changes.Income.Percentage.String())

	_, resp = do(t, srv, http.MethodGet, "/api/reports/periods", "", "u1")
	assert.JSONEq(t, `{"months":["2024-03","2024-02","2023-12"],"years":[2024,2023]}`, string(resp.Data))

	rr, _ := do(t, srv, http.MethodGet, "/api/reports/yearly?year=abc", "", "u1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr, _ = do(t, srv, http.MethodGet, "/api/reports/monthly?month=2024-13", "", "u1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportReport(t *testing.T) {
	srv := newTestServer(t)
	seedReports(t, srv)

	rr, _ := do(t, srv, http.MethodGet, "/api/reports/export?type=monthly&format=csv&month=2024-03", "", "u1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "kakeibo-monthly-2024-03.csv")
	assert.Contains(t, rr.Body.String(), "expense,Food,150,2")

	rr, _ = do(t, srv, http.MethodGet, "/api/reports/export?type=yearly&format=yaml&year=2024", "", "u1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "year: 2024")

	rr, resp := do(t, srv, http.MethodGet, "/api/reports/export?format=pdf", "", "u1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, resp.Error, "unsupported report format: pdf")

	rr, resp = do(t, srv, http.MethodGet, "/api/reports/export?type=weekly", "", "u1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, resp.Error, "unsupported report type: weekly")
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t)

	_, resp := do(t, srv, http.MethodGet, "/api/categories", "", "")
	var cats map[string][]string
	require.NoError(t, json.Unmarshal(resp.Data, &cats))
	assert.Contains(t, cats["income"], "Salary")
	assert.Contains(t, cats["expense"], "Food")
}

func TestRateLimitOnMutations(t *testing.T) {
	svc := services.NewFinanceService(memory.New(nil, nil), nil)
	srv := NewServer(Options{RateLimitRPS: 0.001, RateLimitBurst: 1}, svc)
	defer srv.Shutdown(context.Background())

	body := `{"type":"expense","amount":"1","category":"Food","date":"2024-03-01"}`
	rr, _ := do(t, srv, http.MethodPost, "/api/transactions", body, "u1")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, resp := do(t, srv, http.MethodPost, "/api/transactions", body, "u1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads are not limited
	rr, _ = do(t, srv, http.MethodGet, "/api/transactions", "", "u1")
	assert.Equal(t, http.StatusOK, rr.Code)
}

type unavailableFinance struct{ Finance }

func (unavailableFinance) Ping(context.Context) error { return errors.New("down") }

func (unavailableFinance) Snapshot(context.Context, string) (*services.Snapshot, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFailures(t *testing.T) {
	srv := NewServer(Options{}, unavailableFinance{})
	defer srv.Shutdown(context.Background())

	rr, _ := do(t, srv, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr, resp := do(t, srv, http.MethodGet, "/api/reports/monthly", "", "u1")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", resp.Error)
}

func TestInternalErrorLogCarriesRequestID(t *testing.T) {
	srv := NewServer(Options{}, unavailableFinance{})
	defer srv.Shutdown(context.Background())

	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Format: "json"})
	req := httptest.NewRequest(http.MethodGet, "/api/reports/monthly", nil)
	req.Header.Set(userHeader, "u1")
	req.Header.Set("X-Request-ID", "req-42")
	req = req.WithContext(log.WithLogger(req.Context(), logger))

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] != "Request failed" {
			continue
		}
		found = true
		assert.Equal(t, "req-42", entry[log.FieldRequestID])
		assert.Equal(t, log.ComponentHTTP, entry[log.FieldComponent])
	}
	assert.True(t, found, "no error line in %s", buf.String())
}
