package handlers

import (
	"net/http"

	"xpledger/internal/middleware"
	"xpledger/internal/store"
)

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "account not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load account")
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	if limit > 200 {
		limit = 200
	}
	offset := parseInt(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	kind := r.URL.Query().Get("kind")
	source := r.URL.Query().Get("source")
	txns, err := h.transactions.ListByAccount(r.Context(), account.ID, kind, source, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"limit":        limit,
		"offset":       offset,
	})
}

// SelfCheck reports the stored balance against a read-only replay of the
// transaction history. It never mutates the account; escalation to a
// freeze happens only through the moderator reconcile path.
func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	summary, err := h.accounts.AuditSummary(r.Context(), account.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to run self check")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id":       summary.ID,
		"stored_balance":   summary.StoredBalance,
		"replayed_balance": summary.ReplayedBalance,
		"consistent":       summary.Difference == 0,
		"frozen":           summary.Frozen,
	})
}
