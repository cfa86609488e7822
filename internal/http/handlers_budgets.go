package http

import (
	"net/http"

	"kakeibo/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, userID string) {
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(snap.Budgets()).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request, userID string) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.decimal()
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.finance.SetBudget(r.Context(), userID, sanitizeInput(req.Category), amount, core.Month(sanitizeInput(req.Month)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(userID)
	NewJSONResponse().Data(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, userID string) {
	month := core.Month(r.PathValue("month"))
	category := r.PathValue("category")
	if err := s.finance.DeleteBudget(r.Context(), userID, month, category); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(userID)
	NewJSONResponse().Data(map[string]string{"month": string(month), "category": category}).Write(w)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request, userID string) {
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
	NewJSONResponse().Data(snap.Progress(month)).Write(w)
}

func (s *Server) handleBudgetAlerts(w http.ResponseWriter, r *http.Request, userID string) {
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
	NewJSONResponse().Data(snap.Alerts(month)).Write(w)
}
