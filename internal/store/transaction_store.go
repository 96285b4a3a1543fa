package store

import (
	"context"
	"database/sql"

	"xpledger/internal/models"
)

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

type TransactionInput struct {
	ID           string
	AccountID    string
	Kind         models.TransactionKind
	Amount       int64
	Source       models.TransactionSource
	Reference    string
	Note         string
	BalanceAfter int64
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, kind, amount, source, reference, note, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.AccountID, string(input.Kind), input.Amount, string(input.Source), input.Reference, input.Note, input.BalanceAfter)
	return err
}

// GetByDedupeKey looks up an earlier commit of the same originating event.
// ErrNotFound is sql.ErrNoRows, matching the rest of the store layer.
func (s *TransactionStore) GetByDedupeKey(ctx context.Context, tx Getter, accountID string, source models.TransactionSource, reference string) (models.Transaction, error) {
	var row models.Transaction
	err := tx.GetContext(ctx, &row, `
		SELECT id, account_id, kind, amount, source, reference, note, balance_after, created_at
		FROM transactions
		WHERE account_id = $1 AND source = $2 AND reference = $3
	`, accountID, string(source), reference)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

// SumByAccount replays the full log for one account.
func (s *TransactionStore) SumByAccount(ctx context.Context, tx Getter, accountID string) (int64, error) {
	var sum int64
	err := tx.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE account_id = $1
	`, accountID)
	return sum, err
}

func (s *TransactionStore) ListByAccount(ctx context.Context, accountID, kind, source string, limit, offset int) ([]models.Transaction, error) {
	query := `
		SELECT id, account_id, kind, amount, source, reference, note, balance_after, created_at
		FROM transactions
		WHERE account_id = $1
	`
	args := []any{accountID}
	if kind != "" {
		args = append(args, kind)
		query += ` AND kind = $2`
	}
	if source != "" {
		args = append(args, source)
		query += ` AND source = $` + itoa(len(args))
	}
	args = append(args, limit, offset)
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))
	var rows []models.Transaction
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, account_id, kind, amount, source, reference, note, balance_after, created_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IsNotFound lets callers of GetByDedupeKey avoid importing database/sql.
func IsNotFound(err error) bool {
	return err == sql.ErrNoRows
}
