package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"xpledger/internal/auth"
)

type stubModerators struct {
	isModerator bool
	isSuper     bool
	roles       map[string]bool
}

func (s stubModerators) IsModerator(_ context.Context, _ string) (bool, bool, error) {
	return s.isModerator, s.isSuper, nil
}

func (s stubModerators) HasRole(_ context.Context, _ string, role string) (bool, error) {
	return s.roles[role], nil
}

func moderatorRequest(t *testing.T) *http.Request {
	t.Helper()
	token, err := auth.GenerateToken("secret", "user-1", time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serveModerator(t *testing.T, moderators ModeratorStore, role string) *httptest.ResponseRecorder {
	t.Helper()
	handler := Auth("secret")(RequireModerator(moderators, role)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, moderatorRequest(t))
	return rr
}

func TestRequireModeratorRejectsNonModerator(t *testing.T) {
	rr := serveModerator(t, stubModerators{}, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireModeratorAllowsModerator(t *testing.T) {
	rr := serveModerator(t, stubModerators{isModerator: true}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireModeratorEnforcesRole(t *testing.T) {
	rr := serveModerator(t, stubModerators{isModerator: true}, "CanIssueRefunds")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestRequireModeratorGrantsHeldRole(t *testing.T) {
	moderators := stubModerators{isModerator: true, roles: map[string]bool{"CanIssueRefunds": true}}
	rr := serveModerator(t, moderators, "CanIssueRefunds")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireModeratorSuperBypassesRoles(t *testing.T) {
	rr := serveModerator(t, stubModerators{isModerator: true, isSuper: true}, "CanIssueRefunds")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireModeratorWithoutAuthContext(t *testing.T) {
	handler := RequireModerator(stubModerators{isModerator: true}, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
