package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

const maxBodyBytes = 1 << 20

// requestError is a malformed request that never reached the service.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("request body too large")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// amountField accepts an amount as a JSON number or string, with dot or comma decimals.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = unquoted
	}
	*a = amountField(strings.TrimSpace(s))
	return nil
}

// decimal returns the parsed amount, or zero when the field was absent.
func (a amountField) decimal() (decimal.Decimal, error) {
	if a == "" {
		return decimal.Zero, nil
	}
	return core.ParseAmount(string(a))
}

type transactionRequest struct {
	Type        string      `json:"type"`
	Amount      amountField `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
}

// transaction converts the request; a missing date means today.
func (req transactionRequest) transaction(now time.Time) (core.Transaction, error) {
	amount, err := req.Amount.decimal()
	if err != nil {
		return core.Transaction{}, err
	}
	var kind core.Kind
	if strings.TrimSpace(req.Type) != "" {
		if kind, err = core.ParseKind(req.Type); err != nil {
			return core.Transaction{}, err
		}
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = now.Format(core.DateLayout)
	}
	return core.Transaction{
		Kind:        kind,
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

type budgetRequest struct {
	Category string      `json:"category"`
	Amount   amountField `json:"amount"`
	Month    string      `json:"month"`
}

// monthParam reads a YYYY-MM query value, defaulting to the month of now.
func monthParam(q url.Values, key string, now time.Time) (core.Month, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.MonthOf(now), nil
	}
	return core.ParseMonth(v)
}

// yearParam reads a four digit year, defaulting to the year of now.
func yearParam(q url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(q.Get("year"))
	if v == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 || y > 9999 {
		return 0, badRequest("invalid year: %q", v)
	}
	return y, nil
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
