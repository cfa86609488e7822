package http

import (
	"net/http"

	"kakeibo/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	snap, err := s.snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txs := snap.Transactions
	if v := r.URL.Query().Get("month"); v != "" {
		month, err := core.ParseMonth(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filtered := make([]core.Transaction, 0, len(txs))
		for _, t := range txs {
			if month.Contains(t.Date) {
				filtered = append(filtered, t)
			}
		}
		txs = filtered
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Data(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.transaction(s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.finance.AddTransaction(r.Context(), userID, t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(userID)

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+saved.ID).
		Data(saved).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.finance.DeleteTransaction(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidate(userID)
	NewJSONResponse().Data(map[string]string{"id": r.PathValue("id")}).Write(w)
}
