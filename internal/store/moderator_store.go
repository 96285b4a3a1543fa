package store

import (
	"context"
	"database/sql"
)

type ModeratorStore struct {
	db DB
}

func NewModeratorStore(db DB) *ModeratorStore {
	return &ModeratorStore{db: db}
}

func (s *ModeratorStore) IsModerator(ctx context.Context, userID string) (bool, bool, error) {
	var isSuper bool
	err := s.db.GetContext(ctx, &isSuper, `
		SELECT is_super
		FROM moderators
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, false, nil
		}
		return false, false, err
	}
	return true, isSuper, nil
}

func (s *ModeratorStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM moderator_roles
		WHERE moderator_user_id = $1 AND role = $2
	`, userID, role)
	return count > 0, err
}

func (s *ModeratorStore) CreateModerator(ctx context.Context, tx Execer, userID string, isSuper bool, createdBy *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO moderators (user_id, is_super, created_by)
		VALUES ($1, $2, $3)
	`, userID, isSuper, createdBy)
	return err
}

func (s *ModeratorStore) GrantRole(ctx context.Context, tx Execer, moderatorUserID, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO moderator_roles (moderator_user_id, role)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, moderatorUserID, role)
	return err
}

func (s *ModeratorStore) HasAnyModerator(ctx context.Context) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM moderators`)
	return count > 0, err
}
