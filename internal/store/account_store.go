package store

import (
	"context"

	"xpledger/internal/models"
)

type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

// AccountAuditSummary pairs the cached balance with the replayed ledger sum
// so reconciliation surfaces drift without mutating anything.
type AccountAuditSummary struct {
	ID               string `db:"id"`
	UserID           string `db:"user_id"`
	StoredBalance    int64  `db:"stored_balance"`
	ReplayedBalance  int64  `db:"replayed_balance"`
	Difference       int64  `db:"difference"`
	TotalXP          int64  `db:"total_xp"`
	PenaltyScore     int64  `db:"penalty_score"`
	Frozen           bool   `db:"frozen"`
}

type AccountWithUser struct {
	ID           string  `db:"id" json:"id"`
	Username     *string `db:"username" json:"username"`
	TotalXP      int64   `db:"total_xp" json:"total_xp"`
	Balance      int64   `db:"spendable_balance" json:"balance"`
	PenaltyScore int64   `db:"penalty_score" json:"penalty_score"`
	Frozen       bool    `db:"frozen" json:"frozen"`
	CreatedAt    any     `db:"created_at" json:"created_at"`
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, id, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, total_xp, spendable_balance, penalty_score, free_comment_credits, frozen)
		VALUES ($1, $2, 0, 0, 0, 0, FALSE)
	`, id, userID)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, total_xp, spendable_balance, penalty_score, free_comment_credits, frozen, created_at
		FROM accounts
		WHERE id = $1
	`, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByUser(ctx context.Context, userID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, total_xp, spendable_balance, penalty_score, free_comment_credits, frozen, created_at
		FROM accounts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

// GetForUpdate takes the per-account row lock that serializes every
// ledger-mutating operation on this account.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, total_xp, spendable_balance, penalty_score, free_comment_credits, frozen, created_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) UpdateBalances(ctx context.Context, tx Execer, accountID string, spendable, totalXP int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET spendable_balance = $1, total_xp = $2, updated_at = NOW()
		WHERE id = $3
	`, spendable, totalXP, accountID)
	return err
}

func (s *AccountStore) AddPenalty(ctx context.Context, tx Execer, accountID string, weight int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET penalty_score = penalty_score + $1, updated_at = NOW()
		WHERE id = $2
	`, weight, accountID)
	return err
}

func (s *AccountStore) AdjustFreeCommentCredits(ctx context.Context, tx Execer, accountID string, delta int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET free_comment_credits = free_comment_credits + $1, updated_at = NOW()
		WHERE id = $2 AND free_comment_credits + $1 >= 0
	`, delta, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AccountStore) SetFrozen(ctx context.Context, tx Execer, accountID string, frozen bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET frozen = $1, updated_at = NOW()
		WHERE id = $2
	`, frozen, accountID)
	return err
}

func (s *AccountStore) AuditSummary(ctx context.Context, accountID string) (AccountAuditSummary, error) {
	var row AccountAuditSummary
	err := s.db.GetContext(ctx, &row, `
		SELECT a.id,
		       a.user_id,
		       a.spendable_balance AS stored_balance,
		       COALESCE(SUM(t.amount), 0) AS replayed_balance,
		       (a.spendable_balance - COALESCE(SUM(t.amount), 0)) AS difference,
		       a.total_xp,
		       a.penalty_score,
		       a.frozen
		FROM accounts a
		LEFT JOIN transactions t ON t.account_id = a.id
		WHERE a.id = $1
		GROUP BY a.id, a.user_id, a.spendable_balance, a.total_xp, a.penalty_score, a.frozen
	`, accountID)
	if err != nil {
		return AccountAuditSummary{}, err
	}
	return row, nil
}

func (s *AccountStore) ListAllWithUsers(ctx context.Context) ([]AccountWithUser, error) {
	var rows []AccountWithUser
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id, u.username, a.total_xp, a.spendable_balance, a.penalty_score, a.frozen, a.created_at
		FROM accounts a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.penalty_score DESC, a.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type PenaltyRow struct {
	AccountID        string  `db:"id" json:"account_id"`
	Username         *string `db:"username" json:"username"`
	PenaltyScore     int64   `db:"penalty_score" json:"penalty_score"`
	ReportedComments int64   `db:"reported_comments" json:"reported_comments"`
	ReportsReceived  int64   `db:"reports_received" json:"reports_received"`
}

// ListPenalties surfaces the accounts carrying a penalty score together
// with how much of their comment history drew reports.
func (s *AccountStore) ListPenalties(ctx context.Context, limit int) ([]PenaltyRow, error) {
	var rows []PenaltyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id,
		       u.username,
		       a.penalty_score,
		       COUNT(c.id) FILTER (WHERE c.report_count > 0) AS reported_comments,
		       COALESCE(SUM(c.report_count), 0) AS reports_received
		FROM accounts a
		LEFT JOIN users u ON u.id = a.user_id
		LEFT JOIN comments c ON c.author_account_id = a.id
		WHERE a.penalty_score > 0
		GROUP BY a.id, u.username, a.penalty_score
		ORDER BY a.penalty_score DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
