package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/report"
	"kakeibo/internal/services"
)

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request, userID string) {
	month, err := monthParam(r.URL.Query(), "month", s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap.Monthly(month)).Write(w)
}

func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request, userID string) {
	year, err := yearParam(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap.Yearly(year)).Write(w)
}

// comparePeriods reads current (default this month) and previous (default the month before current).
func (s *Server) comparePeriods(r *http.Request) (current, previous core.Month, err error) {
	q := r.URL.Query()
	if current, err = monthParam(q, "current", s.now()); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(q.Get("previous")) == "" {
		return current, report.PreviousMonth(current), nil
	}
	previous, err = core.ParseMonth(q.Get("previous"))
	return current, previous, err
}

func (s *Server) handleCompareReport(w http.ResponseWriter, r *http.Request, userID string) {
	current, previous, err := s.comparePeriods(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap.Compare(current, previous)).Write(w)
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request, userID string) {
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := s.now()
	NewJSONResponse().Data(map[string]any{
		"months": report.AvailableMonths(snap.Transactions, now),
		"years":  report.AvailableYears(snap.Transactions, now),
	}).Write(w)
}

// handleExportReport streams a report as a file in the requested format.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	format, err := report.ParseFormat(strings.ToLower(q.Get("format")))
	if err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	v, name, err := s.exportSubject(r, snap)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Export(&buf, v, format); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="kakeibo-%s.%s"`, name, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// exportSubject builds the report selected by the type query parameter.
func (s *Server) exportSubject(r *http.Request, snap *services.Snapshot) (any, string, error) {
	q := r.URL.Query()
	switch typ := strings.ToLower(q.Get("type")); typ {
	case "", "monthly":
		month, err := monthParam(q, "month", s.now())
		if err != nil {
			return nil, "", err
		}
		return snap.Monthly(month), "monthly-" + string(month), nil
	case "yearly":
		year, err := yearParam(q, s.now())
		if err != nil {
			return nil, "", err
		}
		return snap.Yearly(year), fmt.Sprintf("yearly-%d", year), nil
	case "compare":
		current, previous, err := s.comparePeriods(r)
		if err != nil {
			return nil, "", err
		}
		return snap.Compare(current, previous), "compare-" + string(current) + "-" + string(previous), nil
	default:
		return nil, "", badRequest("unsupported report type: %s", typ)
	}
}
