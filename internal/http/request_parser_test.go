package http

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"kakeibo/internal/core"
)

func TestAmountField(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantErr bool
	}{
		{`{"amount":"12.34"}`, "12.34", false},
		{`{"amount":"12,5"}`, "12.5", false},
		{`{"amount":7}`, "7", false},
		{`{"amount":0.1}`, "0.1", false},
		{`{}`, "0", false},
		{`{"amount":"-3"}`, "", true},
		{`{"amount":"1.2.3"}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req budgetRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, err := req.Amount.decimal()
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("amount = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMonthAndYearParams(t *testing.T) {
	now := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	m, err := monthParam(url.Values{}, "month", now)
	if err != nil || m != "2024-01" {
		t.Errorf("default month = %q, %v", m, err)
	}
	m, err = monthParam(url.Values{"month": {"2023-07"}}, "month", now)
	if err != nil || m != "2023-07" {
		t.Errorf("month = %q, %v", m, err)
	}
	if _, err := monthParam(url.Values{"month": {"2023-7-1"}}, "month", now); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got %v", err)
	}

	y, err := yearParam(url.Values{}, now)
	if err != nil || y != 2024 {
		t.Errorf("default year = %d, %v", y, err)
	}
	if _, err := yearParam(url.Values{"year": {"0"}}, now); err == nil {
		t.Error("year 0 should be rejected")
	}
}

func TestTransactionRequest(t *testing.T) {
	now := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	req := transactionRequest{Type: " Expense ", Amount: "9,99", Category: " Food\x00 ", Description: "x"}

	tx, err := req.transaction(now)
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if tx.Kind != core.Expense || tx.Category != "Food" || tx.Date != "2024-05-06" || tx.Amount.String() != "9.99" {
		t.Errorf("unexpected transaction %+v", tx)
	}

	if _, err := (transactionRequest{Type: "transfer"}).transaction(now); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x01b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
