package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"xpledger/internal/auth"
	"xpledger/internal/config"
	"xpledger/internal/db"
	"xpledger/internal/economy"
	"xpledger/internal/ledger"
	"xpledger/internal/middleware"
	"xpledger/internal/models"
	"xpledger/internal/store"
	"xpledger/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn        func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn    func(ctx context.Context, email string) (map[string]any, error)
	getByUsernameFn func(ctx context.Context, username string) (map[string]any, error)
	getByIDFn       func(ctx context.Context, userID string) (map[string]any, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (map[string]any, error) {
	if s.getByEmailFn == nil {
		return nil, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (map[string]any, error) {
	if s.getByUsernameFn == nil {
		return nil, nil
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (map[string]any, error) {
	if s.getByIDFn == nil {
		return nil, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubAccountStore struct {
	createFn           func(ctx context.Context, tx store.Execer, id, userID string) error
	getByUserFn        func(ctx context.Context, userID string) (models.Account, error)
	getByIDFn          func(ctx context.Context, accountID string) (models.Account, error)
	auditSummaryFn     func(ctx context.Context, accountID string) (store.AccountAuditSummary, error)
	listAllWithUsersFn func(ctx context.Context) ([]store.AccountWithUser, error)
	listPenaltiesFn    func(ctx context.Context, limit int) ([]store.PenaltyRow, error)
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, id, userID string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, userID)
}

func (s stubAccountStore) GetByUser(ctx context.Context, userID string) (models.Account, error) {
	if s.getByUserFn == nil {
		return models.Account{ID: "acc-1", UserID: userID}, nil
	}
	return s.getByUserFn(ctx, userID)
}

func (s stubAccountStore) GetByID(ctx context.Context, accountID string) (models.Account, error) {
	if s.getByIDFn == nil {
		return models.Account{ID: accountID}, nil
	}
	return s.getByIDFn(ctx, accountID)
}

func (s stubAccountStore) AuditSummary(ctx context.Context, accountID string) (store.AccountAuditSummary, error) {
	if s.auditSummaryFn == nil {
		return store.AccountAuditSummary{}, nil
	}
	return s.auditSummaryFn(ctx, accountID)
}

func (s stubAccountStore) ListAllWithUsers(ctx context.Context) ([]store.AccountWithUser, error) {
	if s.listAllWithUsersFn == nil {
		return nil, nil
	}
	return s.listAllWithUsersFn(ctx)
}

func (s stubAccountStore) ListPenalties(ctx context.Context, limit int) ([]store.PenaltyRow, error) {
	if s.listPenaltiesFn == nil {
		return nil, nil
	}
	return s.listPenaltiesFn(ctx, limit)
}

type stubTransactionStore struct {
	listByAccountFn func(ctx context.Context, accountID, kind, source string, limit, offset int) ([]models.Transaction, error)
	listAllFn       func(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}

func (s stubTransactionStore) ListByAccount(ctx context.Context, accountID, kind, source string, limit, offset int) ([]models.Transaction, error) {
	if s.listByAccountFn == nil {
		return nil, nil
	}
	return s.listByAccountFn(ctx, accountID, kind, source, limit, offset)
}

func (s stubTransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx, limit, offset)
}

type stubCommentStore struct {
	getByIDFn       func(ctx context.Context, commentID string) (models.Comment, error)
	listByArticleFn func(ctx context.Context, articleID string, limit, offset int) ([]models.Comment, error)
}

func (s stubCommentStore) GetByID(ctx context.Context, commentID string) (models.Comment, error) {
	if s.getByIDFn == nil {
		return models.Comment{ID: commentID}, nil
	}
	return s.getByIDFn(ctx, commentID)
}

func (s stubCommentStore) ListByArticle(ctx context.Context, articleID string, limit, offset int) ([]models.Comment, error) {
	if s.listByArticleFn == nil {
		return nil, nil
	}
	return s.listByArticleFn(ctx, articleID, limit, offset)
}

type stubFeatureAdmin struct {
	upsertFn func(ctx context.Context, tx store.Execer, key string, cost int64, description string) error
}

func (s stubFeatureAdmin) Upsert(ctx context.Context, tx store.Execer, key string, cost int64, description string) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, key, cost, description)
}

type stubModeratorStore struct {
	isModeratorFn     func(ctx context.Context, userID string) (bool, bool, error)
	hasRoleFn         func(ctx context.Context, userID, role string) (bool, error)
	createModeratorFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	grantRoleFn       func(ctx context.Context, tx store.Execer, moderatorUserID, role string) error
	hasAnyModeratorFn func(ctx context.Context) (bool, error)
}

func (s stubModeratorStore) IsModerator(ctx context.Context, userID string) (bool, bool, error) {
	if s.isModeratorFn == nil {
		return false, false, nil
	}
	return s.isModeratorFn(ctx, userID)
}

func (s stubModeratorStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if s.hasRoleFn == nil {
		return false, nil
	}
	return s.hasRoleFn(ctx, userID, role)
}

func (s stubModeratorStore) CreateModerator(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createModeratorFn == nil {
		return nil
	}
	return s.createModeratorFn(ctx, tx, userID, isSuper, createdBy)
}

func (s stubModeratorStore) GrantRole(ctx context.Context, tx store.Execer, moderatorUserID, role string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, moderatorUserID, role)
}

func (s stubModeratorStore) HasAnyModerator(ctx context.Context) (bool, error) {
	if s.hasAnyModeratorFn == nil {
		return true, nil
	}
	return s.hasAnyModeratorFn(ctx)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubLedgerService struct {
	commitFn     func(ctx context.Context, req ledger.CommitRequest) (models.Transaction, error)
	commitInTxFn func(ctx context.Context, tx store.Tx, req ledger.CommitRequest) (models.Transaction, bool, error)
	replayFn     func(ctx context.Context, accountID, actorID string) (ledger.ReplayResult, error)
	unfreezeFn   func(ctx context.Context, accountID, actorID string) error
}

func (s stubLedgerService) Commit(ctx context.Context, req ledger.CommitRequest) (models.Transaction, error) {
	if s.commitFn == nil {
		return models.Transaction{}, nil
	}
	return s.commitFn(ctx, req)
}

func (s stubLedgerService) CommitInTx(ctx context.Context, tx store.Tx, req ledger.CommitRequest) (models.Transaction, bool, error) {
	if s.commitInTxFn == nil {
		return models.Transaction{}, true, nil
	}
	return s.commitInTxFn(ctx, tx, req)
}

func (s stubLedgerService) Replay(ctx context.Context, accountID, actorID string) (ledger.ReplayResult, error) {
	if s.replayFn == nil {
		return ledger.ReplayResult{}, nil
	}
	return s.replayFn(ctx, accountID, actorID)
}

func (s stubLedgerService) Unfreeze(ctx context.Context, accountID, actorID string) error {
	if s.unfreezeFn == nil {
		return nil
	}
	return s.unfreezeFn(ctx, accountID, actorID)
}

type stubQuizService struct {
	completeFn func(ctx context.Context, req economy.QuizCompletionRequest) (economy.QuizCompletionResult, error)
}

func (s stubQuizService) CompleteQuiz(ctx context.Context, req economy.QuizCompletionRequest) (economy.QuizCompletionResult, error) {
	if s.completeFn == nil {
		return economy.QuizCompletionResult{}, nil
	}
	return s.completeFn(ctx, req)
}

type stubFeatureService struct {
	catalogFn   func(ctx context.Context) ([]models.Feature, error)
	listOwnedFn func(ctx context.Context, accountID string) ([]models.Ownership, error)
	purchaseFn  func(ctx context.Context, accountID, featureKey string) (models.Transaction, error)
}

func (s stubFeatureService) Catalog(ctx context.Context) ([]models.Feature, error) {
	if s.catalogFn == nil {
		return nil, nil
	}
	return s.catalogFn(ctx)
}

func (s stubFeatureService) ListOwned(ctx context.Context, accountID string) ([]models.Ownership, error) {
	if s.listOwnedFn == nil {
		return nil, nil
	}
	return s.listOwnedFn(ctx, accountID)
}

func (s stubFeatureService) Purchase(ctx context.Context, accountID, featureKey string) (models.Transaction, error) {
	if s.purchaseFn == nil {
		return models.Transaction{}, nil
	}
	return s.purchaseFn(ctx, accountID, featureKey)
}

type stubInteractionService struct {
	postCommentFn func(ctx context.Context, req economy.PostCommentRequest) (economy.PostCommentResult, error)
	escalateFn    func(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error)
	deescalateFn  func(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error)
	clearFn       func(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error)
	reportFn      func(ctx context.Context, accountID, commentID, tier string) (economy.ReportResult, error)
	removeFn      func(ctx context.Context, interactionID, actorID string) error
}

func (s stubInteractionService) PostComment(ctx context.Context, req economy.PostCommentRequest) (economy.PostCommentResult, error) {
	if s.postCommentFn == nil {
		return economy.PostCommentResult{}, nil
	}
	return s.postCommentFn(ctx, req)
}

func (s stubInteractionService) Escalate(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error) {
	if s.escalateFn == nil {
		return economy.ReactionResult{}, nil
	}
	return s.escalateFn(ctx, accountID, commentID)
}

func (s stubInteractionService) Deescalate(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error) {
	if s.deescalateFn == nil {
		return economy.ReactionResult{}, nil
	}
	return s.deescalateFn(ctx, accountID, commentID)
}

func (s stubInteractionService) ClearReaction(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error) {
	if s.clearFn == nil {
		return economy.ReactionResult{}, nil
	}
	return s.clearFn(ctx, accountID, commentID)
}

func (s stubInteractionService) Report(ctx context.Context, accountID, commentID, tier string) (economy.ReportResult, error) {
	if s.reportFn == nil {
		return economy.ReportResult{}, nil
	}
	return s.reportFn(ctx, accountID, commentID, tier)
}

func (s stubInteractionService) RemoveInteraction(ctx context.Context, interactionID, actorID string) error {
	if s.removeFn == nil {
		return nil
	}
	return s.removeFn(ctx, interactionID, actorID)
}

func newTestHandler(txRunner db.TxRunner, users UserStore, accounts AccountStore, transactions TransactionStore, comments CommentStore, featureAdmin FeatureCatalogAdmin, moderators ModeratorStore, audit AuditStore, ledgerSvc LedgerService, quizzes QuizService, features FeatureService, interactions InteractionService) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		Economy: config.Economy{
			SignupBonus:       50,
			PassingThreshold:  60,
			PerfectMultiplier: decimal.RequireFromString("1.25"),
			AuthorShare:       decimal.RequireFromString("0.5"),
			CommentCost:       10,
			ReplyCost:         5,
			BronzeCost:        5,
			SilverCost:        15,
			GoldCost:          30,
		},
	}
	return New(cfg, txRunner, users, accounts, transactions, comments, featureAdmin, moderators, audit, ledgerSvc, quizzes, features, interactions, websocket.NewHub())
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, userID string, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}

func stringPtr(value string) *string {
	return &value
}
