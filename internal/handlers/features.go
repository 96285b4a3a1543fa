package handlers

import (
	"net/http"

	"xpledger/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := h.features.Catalog(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load features")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"features": features})
}

func (h *Handler) ListOwnedFeatures(w http.ResponseWriter, r *http.Request) {
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
	owned, err := h.features.ListOwned(r.Context(), account.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load owned features")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"owned": owned})
}

func (h *Handler) PurchaseFeature(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	key := chi.URLParam(r, "key")
	if key == "" {
		respondError(w, http.StatusBadRequest, "feature key is required")
		return
	}
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	txn, err := h.features.Purchase(r.Context(), account.ID, key)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"feature":     key,
		"transaction": txn,
	})
}
