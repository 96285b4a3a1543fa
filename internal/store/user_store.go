package store

import "context"

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    any    `db:"created_at"`
}

// asMap exposes the row to handlers. The password hash only leaves the
// store on the login path.
func (r userRow) asMap(withHash bool) map[string]any {
	m := map[string]any{
		"id":         r.ID,
		"username":   r.Username,
		"email":      r.Email,
		"created_at": r.CreatedAt,
	}
	if withHash {
		m["password_hash"] = r.PasswordHash
	}
	return m
}

func (s *UserStore) Create(ctx context.Context, tx Execer, id, username, email, passwordHash string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, id, username, email, passwordHash)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (map[string]any, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE email = $1
	`, email)
	if err != nil {
		return nil, err
	}
	return row.asMap(true), nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (map[string]any, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, created_at
		FROM users WHERE username = $1
	`, username)
	if err != nil {
		return nil, err
	}
	return row.asMap(false), nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (map[string]any, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, email, created_at
		FROM users WHERE id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	return row.asMap(false), nil
}
