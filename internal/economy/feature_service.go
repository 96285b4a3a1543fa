package economy

import (
	"context"
	"database/sql"
	"errors"

	"xpledger/internal/db"
	"xpledger/internal/ledger"
	"xpledger/internal/models"

	"github.com/jmoiron/sqlx"
)

var (
	ErrUnknownFeature      = errors.New("unknown feature")
	ErrFeatureAlreadyOwned = errors.New("feature already owned")
)

// FeatureService sells one-time unlocks from the configured catalog.
// Ownership and the balance deduction land in the same transaction, so a
// charged account always holds the feature and vice versa.
type FeatureService struct {
	txRunner db.TxRunner
	ledger   Ledger
	accounts AccountStore
	features FeatureStore
}

func NewFeatureService(txRunner db.TxRunner, ledgerSvc Ledger, accounts AccountStore, features FeatureStore) *FeatureService {
	return &FeatureService{
		txRunner: txRunner,
		ledger:   ledgerSvc,
		accounts: accounts,
		features: features,
	}
}

func (s *FeatureService) Catalog(ctx context.Context) ([]models.Feature, error) {
	return s.features.List(ctx)
}

func (s *FeatureService) ListOwned(ctx context.Context, accountID string) ([]models.Ownership, error) {
	return s.features.ListOwned(ctx, accountID)
}

func (s *FeatureService) Purchase(ctx context.Context, accountID, featureKey string) (models.Transaction, error) {
	// Catalog lookup happens before any lock is held.
	feature, err := s.features.Get(ctx, featureKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Transaction{}, ErrUnknownFeature
		}
		return models.Transaction{}, err
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Transaction{}, ledger.ErrAccountNotFound
		}
		return models.Transaction{}, err
	}

	var txn models.Transaction
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		owned, err := s.features.OwnershipExists(ctx, tx, accountID, featureKey)
		if err != nil {
			return err
		}
		if owned {
			return ErrFeatureAlreadyOwned
		}
		committed, _, err := s.ledger.CommitInTx(ctx, tx, ledger.CommitRequest{
			AccountID: accountID,
			Kind:      models.KindSpend,
			Amount:    -feature.Cost,
			Source:    models.SourceFeaturePurchase,
			Reference: featureKey,
		})
		if err != nil {
			return err
		}
		txn = committed
		return s.features.CreateOwnership(ctx, tx, accountID, featureKey, txn.ID)
	})
	if err != nil {
		return models.Transaction{}, ledger.TranslateError(err)
	}
	s.ledger.Broadcast(account.UserID, accountID, txn.BalanceAfter)
	return txn, nil
}
