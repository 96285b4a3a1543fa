package store

import (
	"context"

	"xpledger/internal/models"
)

type QuizStore struct {
	db DB
}

func NewQuizStore(db DB) *QuizStore {
	return &QuizStore{db: db}
}

// RecordPass is idempotent per (account, article); a retried or repeated
// pass keeps the best score.
func (s *QuizStore) RecordPass(ctx context.Context, tx Execer, accountID, articleID string, scorePercent int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO quiz_passes (account_id, article_id, score_percent)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, article_id)
		DO UPDATE SET score_percent = GREATEST(quiz_passes.score_percent, EXCLUDED.score_percent)
	`, accountID, articleID, scorePercent)
	return err
}

func (s *QuizStore) HasPassed(ctx context.Context, accountID, articleID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM quiz_passes
		WHERE account_id = $1 AND article_id = $2
	`, accountID, articleID)
	return count > 0, err
}

func (s *QuizStore) ListByAccount(ctx context.Context, accountID string) ([]models.QuizPass, error) {
	var rows []models.QuizPass
	err := s.db.SelectContext(ctx, &rows, `
		SELECT account_id, article_id, score_percent, created_at
		FROM quiz_passes
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
