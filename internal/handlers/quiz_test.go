package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"xpledger/internal/economy"
	"xpledger/internal/models"
	"xpledger/internal/xp"
)

func TestCompleteQuizSuccess(t *testing.T) {
	var got economy.QuizCompletionRequest
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{
		completeFn: func(_ context.Context, req economy.QuizCompletionRequest) (economy.QuizCompletionResult, error) {
			got = req
			return economy.QuizCompletionResult{
				Passed:      true,
				Award:       xp.Award{XP: 360},
				Transaction: &models.Transaction{ID: "txn-1", Amount: 360},
			}, nil
		},
	}, stubFeatureService{}, stubInteractionService{})

	body := strings.NewReader(`{"article_id":"art-1","attempt_id":"attempt-1","word_count":500,"wpm_used":300,"baseline_wpm":250,"reading_level":"8.0","score_percent":75}`)
	req := httptest.NewRequest(http.MethodPost, "/quizzes/complete", body)
	rr := serveWithAuth(t, handler.CompleteQuiz, "user-1", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.AccountID != "acc-1" || got.ArticleID != "art-1" || got.AttemptID != "attempt-1" {
		t.Fatalf("unexpected service request: %+v", got)
	}
	if got.Result.WordCount != 500 || got.Result.ScorePercent != 75 {
		t.Fatalf("quiz result not passed through: %+v", got.Result)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["passed"] != true {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if payload["xp_awarded"] != float64(360) {
		t.Fatalf("unexpected award in payload: %#v", payload["xp_awarded"])
	}
	if _, ok := payload["transaction"]; !ok {
		t.Fatal("expected transaction in payload")
	}
}

func TestCompleteQuizFailedAttemptHasNoTransaction(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{
		completeFn: func(context.Context, economy.QuizCompletionRequest) (economy.QuizCompletionResult, error) {
			return economy.QuizCompletionResult{Passed: false}, nil
		},
	}, stubFeatureService{}, stubInteractionService{})

	body := strings.NewReader(`{"article_id":"art-1","attempt_id":"attempt-1","word_count":500,"wpm_used":300,"baseline_wpm":250,"reading_level":"8.0","score_percent":40}`)
	req := httptest.NewRequest(http.MethodPost, "/quizzes/complete", body)
	rr := serveWithAuth(t, handler.CompleteQuiz, "user-1", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["passed"] != false {
		t.Fatalf("unexpected payload: %#v", payload)
	}
	if _, ok := payload["transaction"]; ok {
		t.Fatal("failed attempt must not carry a transaction")
	}
}

func TestCompleteQuizRequiresIdentifiers(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{
		completeFn: func(context.Context, economy.QuizCompletionRequest) (economy.QuizCompletionResult, error) {
			t.Fatal("service must not be reached without identifiers")
			return economy.QuizCompletionResult{}, nil
		},
	}, stubFeatureService{}, stubInteractionService{})

	body := strings.NewReader(`{"article_id":"","attempt_id":"","score_percent":75}`)
	req := httptest.NewRequest(http.MethodPost, "/quizzes/complete", body)
	rr := serveWithAuth(t, handler.CompleteQuiz, "user-1", req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCompleteQuizMalformedResult(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{
		completeFn: func(context.Context, economy.QuizCompletionRequest) (economy.QuizCompletionResult, error) {
			return economy.QuizCompletionResult{}, xp.ErrInvalidResult
		},
	}, stubFeatureService{}, stubInteractionService{})

	body := strings.NewReader(`{"article_id":"art-1","attempt_id":"attempt-1","word_count":500,"wpm_used":300,"baseline_wpm":0,"reading_level":"8.0","score_percent":75}`)
	req := httptest.NewRequest(http.MethodPost, "/quizzes/complete", body)
	rr := serveWithAuth(t, handler.CompleteQuiz, "user-1", req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
