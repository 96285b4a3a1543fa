package handlers

import (
	"encoding/json"
	"net/http"

	"xpledger/internal/economy"
	"xpledger/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type postCommentRequest struct {
	ArticleID string  `json:"article_id"`
	ParentID  *string `json:"parent_id"`
	Body      string  `json:"body"`
}

func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req postCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ArticleID == "" || req.Body == "" {
		respondError(w, http.StatusBadRequest, "article_id and body are required")
		return
	}
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	result, err := h.interactions.PostComment(r.Context(), economy.PostCommentRequest{
		AccountID: account.ID,
		ArticleID: req.ArticleID,
		ParentID:  req.ParentID,
		Body:      req.Body,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"comment_id":  result.CommentID,
		"transaction": result.Transaction,
		"used_credit": result.UsedCredit,
	})
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")
	if articleID == "" {
		respondError(w, http.StatusBadRequest, "article id is required")
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	if limit > 200 {
		limit = 200
	}
	offset := parseInt(r.URL.Query().Get("offset"), 0)
	comments, err := h.comments.ListByArticle(r.Context(), articleID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load comments")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

type reactionRequest struct {
	Direction string `json:"direction"`
}

// React moves the caller's reaction on a comment one tier in the requested
// direction. "up" charges the marginal cost of the next tier, "down"
// refunds one step.
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	commentID := chi.URLParam(r, "id")
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	var result economy.ReactionResult
	switch req.Direction {
	case "up":
		result, err = h.interactions.Escalate(r.Context(), account.ID, commentID)
	case "down":
		result, err = h.interactions.Deescalate(r.Context(), account.ID, commentID)
	default:
		respondError(w, http.StatusBadRequest, "direction must be up or down")
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tier":          result.Tier,
		"balance":       result.ReactorBalance,
		"author_credit": result.AuthorCredit,
	})
}

// ClearReaction removes the caller's positive reaction entirely, refunding
// the full tier cost in one step instead of walking tiers down one by one.
func (h *Handler) ClearReaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	commentID := chi.URLParam(r, "id")
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	result, err := h.interactions.ClearReaction(r.Context(), account.ID, commentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tier":          result.Tier,
		"balance":       result.ReactorBalance,
		"author_credit": result.AuthorCredit,
	})
}

type reportRequest struct {
	Tier string `json:"tier"`
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	commentID := chi.URLParam(r, "id")
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Tier == "" {
		respondError(w, http.StatusBadRequest, "report tier is required")
		return
	}
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	result, err := h.interactions.Report(r.Context(), account.ID, commentID, req.Tier)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tier":         result.Tier,
		"balance":      result.ReporterBalance,
		"report_count": result.ReportCount,
	})
}
