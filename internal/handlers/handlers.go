package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"xpledger/internal/economy"
	"xpledger/internal/ledger"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the ledger/economy error taxonomy onto HTTP.
// Busy is the one retryable outcome; callers are expected to retry with
// the same idempotency reference.
func respondServiceError(w http.ResponseWriter, err error) {
	switch err {
	case ledger.ErrInsufficientFunds:
		respondError(w, http.StatusBadRequest, "insufficient_funds")
	case ledger.ErrInvalidInput:
		respondError(w, http.StatusBadRequest, "invalid_input")
	case ledger.ErrBusy:
		respondError(w, http.StatusServiceUnavailable, "busy_retry")
	case ledger.ErrAccountFrozen:
		respondError(w, http.StatusConflict, "account_frozen")
	case ledger.ErrAccountNotFound:
		respondError(w, http.StatusNotFound, "account_not_found")
	case ledger.ErrLedgerIntegrity:
		respondError(w, http.StatusInternalServerError, "ledger_integrity_failure")
	case economy.ErrUnknownFeature:
		respondError(w, http.StatusNotFound, "unknown_feature")
	case economy.ErrFeatureAlreadyOwned:
		respondError(w, http.StatusConflict, "feature_already_owned")
	case economy.ErrAlreadyAtTier:
		respondError(w, http.StatusConflict, "already_at_tier")
	case economy.ErrQuizNotPassed:
		respondError(w, http.StatusForbidden, "quiz_not_passed")
	case economy.ErrUnknownInteractionTarget:
		respondError(w, http.StatusNotFound, "unknown_interaction_target")
	case economy.ErrInvalidInteraction:
		respondError(w, http.StatusBadRequest, "invalid_interaction")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

func valueToString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
