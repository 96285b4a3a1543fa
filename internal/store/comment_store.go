package store

import (
	"context"
	"errors"

	"xpledger/internal/models"
)

type CommentStore struct {
	db DB
}

func NewCommentStore(db DB) *CommentStore {
	return &CommentStore{db: db}
}

func (s *CommentStore) Create(ctx context.Context, tx Execer, id, articleID, authorAccountID string, parentID *string, body string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO comments (id, article_id, author_account_id, parent_id, body)
		VALUES ($1, $2, $3, $4, $5)
	`, id, articleID, authorAccountID, parentID, body)
	return err
}

func (s *CommentStore) GetByID(ctx context.Context, commentID string) (models.Comment, error) {
	var row models.Comment
	err := s.db.GetContext(ctx, &row, `
		SELECT id, article_id, author_account_id, parent_id, body,
		       bronze_count, silver_count, gold_count, report_count, created_at
		FROM comments
		WHERE id = $1
	`, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	return row, nil
}

// AdjustTierCount moves a reactor between the cumulative per-tier counters.
// Tier names map straight onto columns, so anything unexpected is rejected
// before it reaches the query.
func (s *CommentStore) AdjustTierCount(ctx context.Context, tx Execer, commentID, tier string, delta int64) error {
	var column string
	switch tier {
	case "bronze":
		column = "bronze_count"
	case "silver":
		column = "silver_count"
	case "gold":
		column = "gold_count"
	default:
		return errors.New("unknown reaction tier: " + tier)
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE comments
		SET `+column+` = `+column+` + $1
		WHERE id = $2
	`, delta, commentID)
	return err
}

func (s *CommentStore) IncrementReportCount(ctx context.Context, tx Execer, commentID string, delta int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE comments
		SET report_count = report_count + $1
		WHERE id = $2
	`, delta, commentID)
	return err
}

func (s *CommentStore) ListByArticle(ctx context.Context, articleID string, limit, offset int) ([]models.Comment, error) {
	var rows []models.Comment
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, article_id, author_account_id, parent_id, body,
		       bronze_count, silver_count, gold_count, report_count, created_at
		FROM comments
		WHERE article_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, articleID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
