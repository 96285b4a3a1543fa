package store

import (
	"context"

	"xpledger/internal/models"
)

type InteractionStore struct {
	db DB
}

func NewInteractionStore(db DB) *InteractionStore {
	return &InteractionStore{db: db}
}

// GetForUpdate locks the (reactor, comment) row so concurrent tier changes
// on the same pair serialize. sql.ErrNoRows means no interaction yet.
func (s *InteractionStore) GetForUpdate(ctx context.Context, tx Getter, accountID, commentID string) (models.Interaction, error) {
	var row models.Interaction
	err := tx.GetContext(ctx, &row, `
		SELECT id, account_id, comment_id, polarity, tier, created_at, updated_at
		FROM interactions
		WHERE account_id = $1 AND comment_id = $2
		FOR UPDATE
	`, accountID, commentID)
	if err != nil {
		return models.Interaction{}, err
	}
	return row, nil
}

func (s *InteractionStore) GetByID(ctx context.Context, interactionID string) (models.Interaction, error) {
	var row models.Interaction
	err := s.db.GetContext(ctx, &row, `
		SELECT id, account_id, comment_id, polarity, tier, created_at, updated_at
		FROM interactions
		WHERE id = $1
	`, interactionID)
	if err != nil {
		return models.Interaction{}, err
	}
	return row, nil
}

func (s *InteractionStore) Create(ctx context.Context, tx Execer, id, accountID, commentID string, polarity models.InteractionPolarity, tier string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO interactions (id, account_id, comment_id, polarity, tier)
		VALUES ($1, $2, $3, $4, $5)
	`, id, accountID, commentID, string(polarity), tier)
	return err
}

func (s *InteractionStore) UpdateTier(ctx context.Context, tx Execer, interactionID, tier string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE interactions
		SET tier = $1, updated_at = NOW()
		WHERE id = $2
	`, tier, interactionID)
	return err
}

func (s *InteractionStore) Delete(ctx context.Context, tx Execer, interactionID string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM interactions
		WHERE id = $1
	`, interactionID)
	return err
}
