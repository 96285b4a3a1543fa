package handlers

import (
	"encoding/json"
	"net/http"

	"xpledger/internal/economy"
	"xpledger/internal/middleware"
	"xpledger/internal/xp"

	"github.com/shopspring/decimal"
)

type quizCompleteRequest struct {
	ArticleID    string          `json:"article_id"`
	AttemptID    string          `json:"attempt_id"`
	WordCount    int64           `json:"word_count"`
	WPMUsed      int64           `json:"wpm_used"`
	BaselineWPM  int64           `json:"baseline_wpm"`
	ReadingLevel decimal.Decimal `json:"reading_level"`
	ScorePercent int             `json:"score_percent"`
}

func (h *Handler) CompleteQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req quizCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ArticleID == "" || req.AttemptID == "" {
		respondError(w, http.StatusBadRequest, "article_id and attempt_id are required")
		return
	}
	account, err := h.accounts.GetByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	result, err := h.quizzes.CompleteQuiz(r.Context(), economy.QuizCompletionRequest{
		AccountID: account.ID,
		ArticleID: req.ArticleID,
		AttemptID: req.AttemptID,
		Result: xp.QuizResult{
			WordCount:    req.WordCount,
			WPMUsed:      req.WPMUsed,
			BaselineWPM:  req.BaselineWPM,
			ReadingLevel: req.ReadingLevel,
			ScorePercent: req.ScorePercent,
		},
	})
	if err != nil {
		if err == xp.ErrInvalidResult || err == economy.ErrQuizAttemptRequired {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondServiceError(w, err)
		return
	}
	payload := map[string]any{
		"passed":             result.Passed,
		"xp_awarded":         result.Award.XP,
		"perfect":            result.Award.Perfect,
		"free_comment_grant": result.Award.GrantsFreeComment,
		"replayed":           result.Replayed,
	}
	if result.Transaction != nil {
		payload["transaction"] = result.Transaction
	}
	respondJSON(w, http.StatusOK, payload)
}
