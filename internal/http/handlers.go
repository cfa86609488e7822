package http

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","timestamp":"` + s.now().UTC().Format(time.RFC3339) + `"}`))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.finance.Ping(r.Context()); err != nil {
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	income, expense, err := s.finance.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(map[string][]string{
		"income":  income,
		"expense": expense,
	}).Write(w)
}
