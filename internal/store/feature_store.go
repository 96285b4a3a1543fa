package store

import (
	"context"

	"xpledger/internal/models"
)

type FeatureStore struct {
	db DB
}

func NewFeatureStore(db DB) *FeatureStore {
	return &FeatureStore{db: db}
}

func (s *FeatureStore) Get(ctx context.Context, key string) (models.Feature, error) {
	var row models.Feature
	err := s.db.GetContext(ctx, &row, `
		SELECT key, cost, description, created_at
		FROM features
		WHERE key = $1
	`, key)
	if err != nil {
		return models.Feature{}, err
	}
	return row, nil
}

func (s *FeatureStore) List(ctx context.Context) ([]models.Feature, error) {
	var rows []models.Feature
	err := s.db.SelectContext(ctx, &rows, `
		SELECT key, cost, description, created_at
		FROM features
		ORDER BY cost, key
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *FeatureStore) Upsert(ctx context.Context, tx Execer, key string, cost int64, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO features (key, cost, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET cost = EXCLUDED.cost, description = EXCLUDED.description
	`, key, cost, description)
	return err
}

func (s *FeatureStore) OwnershipExists(ctx context.Context, tx Getter, accountID, featureKey string) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM feature_ownerships
		WHERE account_id = $1 AND feature_key = $2
	`, accountID, featureKey)
	return count > 0, err
}

func (s *FeatureStore) CreateOwnership(ctx context.Context, tx Execer, accountID, featureKey, transactionID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO feature_ownerships (account_id, feature_key, transaction_id)
		VALUES ($1, $2, $3)
	`, accountID, featureKey, transactionID)
	return err
}

func (s *FeatureStore) ListOwned(ctx context.Context, accountID string) ([]models.Ownership, error) {
	var rows []models.Ownership
	err := s.db.SelectContext(ctx, &rows, `
		SELECT account_id, feature_key, transaction_id, created_at
		FROM feature_ownerships
		WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
