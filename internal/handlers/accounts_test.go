package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"xpledger/internal/models"
	"xpledger/internal/store"
)

func TestGetAccount(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{
		getByUserFn: func(_ context.Context, userID string) (models.Account, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user lookup: %s", userID)
			}
			return models.Account{ID: "acc-1", UserID: userID, TotalXP: 200, SpendableBalance: 140}, nil
		},
	}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{}, stubFeatureService{}, stubInteractionService{})

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	rr := serveWithAuth(t, handler.GetAccount, "user-1", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload models.Account
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ID != "acc-1" || payload.TotalXP != 200 || payload.SpendableBalance != 140 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{
		getByUserFn: func(context.Context, string) (models.Account, error) {
			return models.Account{}, sql.ErrNoRows
		},
	}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{}, stubFeatureService{}, stubInteractionService{})

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	rr := serveWithAuth(t, handler.GetAccount, "user-1", req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListTransactionsPassesFilters(t *testing.T) {
	var gotKind, gotSource string
	var gotLimit int
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubTransactionStore{
		listByAccountFn: func(_ context.Context, accountID, kind, source string, limit, offset int) ([]models.Transaction, error) {
			if accountID != "acc-1" {
				t.Fatalf("unexpected account: %s", accountID)
			}
			gotKind, gotSource, gotLimit = kind, source, limit
			return []models.Transaction{{ID: "txn-1", AccountID: accountID}}, nil
		},
	}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{}, stubFeatureService{}, stubInteractionService{})

	req := httptest.NewRequest(http.MethodGet, "/account/transactions?kind=EARN&source=quiz&limit=1000", nil)
	rr := serveWithAuth(t, handler.ListTransactions, "user-1", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotKind != "EARN" || gotSource != "quiz" {
		t.Fatalf("filters not passed through: kind=%q source=%q", gotKind, gotSource)
	}
	if gotLimit != 200 {
		t.Fatalf("expected limit capped at 200, got %d", gotLimit)
	}
}

func TestSelfCheckConsistent(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{
		auditSummaryFn: func(_ context.Context, accountID string) (store.AccountAuditSummary, error) {
			return store.AccountAuditSummary{
				ID:              accountID,
				StoredBalance:   140,
				ReplayedBalance: 140,
				Difference:      0,
			}, nil
		},
	}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{}, stubFeatureService{}, stubInteractionService{})

	req := httptest.NewRequest(http.MethodGet, "/account/self-check", nil)
	rr := serveWithAuth(t, handler.SelfCheck, "user-1", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["consistent"] != true {
		t.Fatalf("expected consistent result, got %#v", payload)
	}
}

func TestSelfCheckDrifted(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{
		auditSummaryFn: func(_ context.Context, accountID string) (store.AccountAuditSummary, error) {
			return store.AccountAuditSummary{
				ID:              accountID,
				StoredBalance:   140,
				ReplayedBalance: 120,
				Difference:      20,
			}, nil
		},
	}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{}, stubFeatureService{}, stubInteractionService{})

	req := httptest.NewRequest(http.MethodGet, "/account/self-check", nil)
	rr := serveWithAuth(t, handler.SelfCheck, "user-1", req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["consistent"] != false {
		t.Fatalf("expected inconsistent result, got %#v", payload)
	}
}

func TestMissingAuthIsRejected(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubTransactionStore{}, stubCommentStore{}, stubFeatureAdmin{}, stubModeratorStore{}, stubAuditStore{}, stubLedgerService{}, stubQuizService{}, stubFeatureService{}, stubInteractionService{})

	req := httptest.NewRequest(http.MethodGet, "/account", nil)
	rr := httptest.NewRecorder()
	handler.GetAccount(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
