package economy

import (
	"context"

	"xpledger/internal/ledger"
	"xpledger/internal/models"
	"xpledger/internal/store"
)

// Ledger is the slice of the ledger service the economy components use.
// Everything balance-shaped goes through it; the economy owns only its own
// rows (ownership, comments, interactions, quiz passes).
type Ledger interface {
	CommitInTx(ctx context.Context, tx store.Tx, req ledger.CommitRequest) (models.Transaction, bool, error)
	CommitPairInTx(ctx context.Context, tx store.Tx, debit, credit ledger.CommitRequest) (models.Transaction, models.Transaction, error)
	GrantFreeCommentInTx(ctx context.Context, tx store.Tx, accountID string) error
	ConsumeFreeCommentInTx(ctx context.Context, tx store.Tx, accountID string) (bool, error)
	AddPenaltyInTx(ctx context.Context, tx store.Tx, accountID string, weight int64) error
	Broadcast(userID, accountID string, balance int64)
}

type AccountStore interface {
	GetByID(ctx context.Context, accountID string) (models.Account, error)
}

type FeatureStore interface {
	Get(ctx context.Context, key string) (models.Feature, error)
	List(ctx context.Context) ([]models.Feature, error)
	OwnershipExists(ctx context.Context, tx store.Getter, accountID, featureKey string) (bool, error)
	CreateOwnership(ctx context.Context, tx store.Execer, accountID, featureKey, transactionID string) error
	ListOwned(ctx context.Context, accountID string) ([]models.Ownership, error)
}

type CommentStore interface {
	Create(ctx context.Context, tx store.Execer, id, articleID, authorAccountID string, parentID *string, body string) error
	GetByID(ctx context.Context, commentID string) (models.Comment, error)
	AdjustTierCount(ctx context.Context, tx store.Execer, commentID, tier string, delta int64) error
	IncrementReportCount(ctx context.Context, tx store.Execer, commentID string, delta int64) error
}

type InteractionStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, accountID, commentID string) (models.Interaction, error)
	GetByID(ctx context.Context, interactionID string) (models.Interaction, error)
	Create(ctx context.Context, tx store.Execer, id, accountID, commentID string, polarity models.InteractionPolarity, tier string) error
	UpdateTier(ctx context.Context, tx store.Execer, interactionID, tier string) error
	Delete(ctx context.Context, tx store.Execer, interactionID string) error
}

type QuizStore interface {
	RecordPass(ctx context.Context, tx store.Execer, accountID, articleID string, scorePercent int) error
	HasPassed(ctx context.Context, accountID, articleID string) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}
