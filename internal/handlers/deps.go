package handlers

import (
	"context"

	"xpledger/internal/economy"
	"xpledger/internal/ledger"
	"xpledger/internal/models"
	"xpledger/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (map[string]any, error)
	GetByUsername(ctx context.Context, username string) (map[string]any, error)
	GetByID(ctx context.Context, userID string) (map[string]any, error)
}

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, id, userID string) error
	GetByUser(ctx context.Context, userID string) (models.Account, error)
	GetByID(ctx context.Context, accountID string) (models.Account, error)
	AuditSummary(ctx context.Context, accountID string) (store.AccountAuditSummary, error)
	ListAllWithUsers(ctx context.Context) ([]store.AccountWithUser, error)
	ListPenalties(ctx context.Context, limit int) ([]store.PenaltyRow, error)
}

type TransactionStore interface {
	ListByAccount(ctx context.Context, accountID, kind, source string, limit, offset int) ([]models.Transaction, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}

type CommentStore interface {
	GetByID(ctx context.Context, commentID string) (models.Comment, error)
	ListByArticle(ctx context.Context, articleID string, limit, offset int) ([]models.Comment, error)
}

type FeatureCatalogAdmin interface {
	Upsert(ctx context.Context, tx store.Execer, key string, cost int64, description string) error
}

type ModeratorStore interface {
	IsModerator(ctx context.Context, userID string) (bool, bool, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
	CreateModerator(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	GrantRole(ctx context.Context, tx store.Execer, moderatorUserID, role string) error
	HasAnyModerator(ctx context.Context) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

type LedgerService interface {
	Commit(ctx context.Context, req ledger.CommitRequest) (models.Transaction, error)
	CommitInTx(ctx context.Context, tx store.Tx, req ledger.CommitRequest) (models.Transaction, bool, error)
	Replay(ctx context.Context, accountID, actorID string) (ledger.ReplayResult, error)
	Unfreeze(ctx context.Context, accountID, actorID string) error
}

type QuizService interface {
	CompleteQuiz(ctx context.Context, req economy.QuizCompletionRequest) (economy.QuizCompletionResult, error)
}

type FeatureService interface {
	Catalog(ctx context.Context) ([]models.Feature, error)
	ListOwned(ctx context.Context, accountID string) ([]models.Ownership, error)
	Purchase(ctx context.Context, accountID, featureKey string) (models.Transaction, error)
}

type InteractionService interface {
	PostComment(ctx context.Context, req economy.PostCommentRequest) (economy.PostCommentResult, error)
	Escalate(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error)
	Deescalate(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error)
	ClearReaction(ctx context.Context, accountID, commentID string) (economy.ReactionResult, error)
	Report(ctx context.Context, accountID, commentID, tier string) (economy.ReportResult, error)
	RemoveInteraction(ctx context.Context, interactionID, actorID string) error
}
