package adapthttp

import (
	"net/http"
	"time"
)

func (s *Server) handleTransactionCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := s.tx.Record(r.Context(), claimFromContext(r), body.Amount, body.Description)
	if err != nil {
		s.writeServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionsRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := intQuery(r, "limit", 20)
	items, err := s.tx.ListRecent(r.Context(), claimFromContext(r), limit)
	if err != nil {
		s.writeServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleTransactionUndoLast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	undone, id, err := s.tx.UndoLast(r.Context(), claimFromContext(r))
	if err != nil {
		s.writeServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"undone": undone, "id": id})
}

func (s *Server) handleSummaryDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	days := intQuery(r, "days", 30)
	points, total, err := s.summary.GetDaily(r.Context(), claimFromContext(r), days)
	if err != nil {
		s.writeServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":  len(points),
		"today": localDayString(time.Now()),
		"total": total,
		"items": points,
	})
}
