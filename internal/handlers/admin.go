package handlers

import (
	"encoding/json"
	"net/http"

	"xpledger/internal/ledger"
	"xpledger/internal/middleware"
	"xpledger/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

func (h *Handler) AdminListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAllWithUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load accounts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	if limit > 500 {
		limit = 500
	}
	offset := parseInt(r.URL.Query().Get("offset"), 0)
	txns, err := h.transactions.ListAll(r.Context(), limit, offset)
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

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	if limit > 500 {
		limit = 500
	}
	offset := parseInt(r.URL.Query().Get("offset"), 0)
	logs, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

// AdminListPenalties shows which authors are accumulating reports, for
// moderators deciding whether to escalate beyond the automatic penalties.
func (h *Handler) AdminListPenalties(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	if limit > 500 {
		limit = 500
	}
	penalties, err := h.accounts.ListPenalties(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load penalties")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"penalties": penalties})
}

type refundRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Note      string `json:"note"`
}

// IssueRefund credits an account back for a spend that should not have
// happened. Reference carries the idempotency key so a retried request
// cannot refund twice.
func (h *Handler) IssueRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.AccountID == "" || req.Amount <= 0 || req.Reference == "" {
		respondError(w, http.StatusBadRequest, "account_id, positive amount and reference are required")
		return
	}
	txn, err := h.ledger.Commit(r.Context(), ledger.CommitRequest{
		AccountID: req.AccountID,
		Kind:      models.KindRefund,
		Amount:    req.Amount,
		Source:    models.SourceModerationReversal,
		Reference: req.Reference,
		Note:      req.Note,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"transaction": txn})
}

// Reconcile replays an account's full history against its stored balance.
// A mismatch freezes the account and is reported as an integrity failure
// alongside both balances; a match is a plain 200.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accountID := chi.URLParam(r, "accountID")
	result, err := h.ledger.Replay(r.Context(), accountID, actorID)
	if err != nil {
		if err == ledger.ErrLedgerIntegrity {
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":  "ledger_integrity_failure",
				"result": result,
			})
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (h *Handler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accountID := chi.URLParam(r, "accountID")
	if err := h.ledger.Unfreeze(r.Context(), accountID, actorID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "unfrozen", "account_id": accountID})
}

type upsertFeatureRequest struct {
	Cost        int64  `json:"cost"`
	Description string `json:"description"`
}

func (h *Handler) UpsertFeature(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	key := chi.URLParam(r, "key")
	var req upsertFeatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if key == "" || req.Cost < 0 {
		respondError(w, http.StatusBadRequest, "feature key and non-negative cost are required")
		return
	}
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.featureAdmin.Upsert(r.Context(), tx, key, req.Cost, req.Description); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"key": key, "cost": req.Cost})
		return h.audit.Log(r.Context(), tx, actorID, "feature_upsert", "feature", key, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to save feature")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"key": key, "cost": req.Cost})
}

func (h *Handler) RemoveInteraction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	interactionID := chi.URLParam(r, "id")
	if err := h.interactions.RemoveInteraction(r.Context(), interactionID, actorID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed", "interaction_id": interactionID})
}

type promoteRequest struct {
	Username string `json:"username"`
	IsSuper  bool   `json:"is_super"`
}

func (h *Handler) PromoteModerator(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	isMod, isSuper, err := h.moderators.IsModerator(r.Context(), actorID)
	if err != nil || !isMod || !isSuper {
		respondError(w, http.StatusForbidden, "super moderator access required")
		return
	}
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	targetID := valueToString(user["id"])
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.moderators.CreateModerator(r.Context(), tx, targetID, req.IsSuper, &actorID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{"username": req.Username, "is_super": req.IsSuper})
		return h.audit.Log(r.Context(), tx, actorID, "moderator_promote", "user", targetID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to promote user")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "promoted", "user_id": targetID})
}

type grantRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	isMod, isSuper, err := h.moderators.IsModerator(r.Context(), actorID)
	if err != nil || !isMod || !isSuper {
		respondError(w, http.StatusForbidden, "super moderator access required")
		return
	}
	var req grantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.UserID == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "user_id and role are required")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.moderators.GrantRole(r.Context(), tx, req.UserID, req.Role); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"role": req.Role})
		return h.audit.Log(r.Context(), tx, actorID, "role_grant", "moderator", req.UserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to grant role")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "granted", "user_id": req.UserID, "role": req.Role})
}
