// Package ledger owns every balance mutation in the system. All other
// components change account state only by asking this service to commit a
// transaction; nothing else writes spendable_balance, total_xp,
// penalty_score or free_comment_credits.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"xpledger/internal/db"
	"xpledger/internal/models"
	"xpledger/internal/store"
	"xpledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidInput      = errors.New("invalid commit request")
	ErrBusy              = errors.New("account busy, retry")
	ErrAccountFrozen     = errors.New("account frozen pending reconciliation")
	ErrAccountNotFound   = errors.New("account not found")
	ErrLedgerIntegrity   = errors.New("ledger integrity failure")
)

type AccountStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (models.Account, error)
	UpdateBalances(ctx context.Context, tx store.Execer, accountID string, spendable, totalXP int64) error
	AddPenalty(ctx context.Context, tx store.Execer, accountID string, weight int64) error
	AdjustFreeCommentCredits(ctx context.Context, tx store.Execer, accountID string, delta int64) (int64, error)
	SetFrozen(ctx context.Context, tx store.Execer, accountID string, frozen bool) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
	GetByDedupeKey(ctx context.Context, tx store.Getter, accountID string, source models.TransactionSource, reference string) (models.Transaction, error)
	SumByAccount(ctx context.Context, tx store.Getter, accountID string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type Service struct {
	txRunner db.TxRunner
	accounts AccountStore
	txns     TransactionStore
	audit    AuditStore
	hub      BalanceHub
}

func NewService(txRunner db.TxRunner, accounts AccountStore, txns TransactionStore, audit AuditStore, hub BalanceHub) *Service {
	return &Service{
		txRunner: txRunner,
		accounts: accounts,
		txns:     txns,
		audit:    audit,
		hub:      hub,
	}
}

// CommitRequest describes one balance change. Reference is the originating
// event id where retries must not double-commit; empty means no dedupe.
// ClampToBalance permits debiting an account that cannot cover the full
// amount by shrinking the debit to what is there (used for compensating
// reversals of rewards the account may already have spent).
type CommitRequest struct {
	AccountID      string
	Kind           models.TransactionKind
	Amount         int64
	Source         models.TransactionSource
	Reference      string
	Note           string
	ClampToBalance bool
}

func validate(req CommitRequest) error {
	if req.AccountID == "" {
		return ErrInvalidInput
	}
	switch req.Source {
	case models.SourceQuiz, models.SourceCommentPost, models.SourceReaction,
		models.SourceFeaturePurchase, models.SourceBonus, models.SourceModerationReversal:
	default:
		return ErrInvalidInput
	}
	switch req.Kind {
	case models.KindEarn, models.KindTransferIn, models.KindRefund:
		if req.Amount <= 0 {
			return ErrInvalidInput
		}
	case models.KindSpend:
		if req.Amount > 0 {
			return ErrInvalidInput
		}
	case models.KindTransferOut:
		if req.Amount >= 0 && !(req.ClampToBalance && req.Amount <= 0) {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidInput
	}
	return nil
}

// Commit appends one transaction and updates the cached balance, all under
// the account's row lock. Replaying a (account, source, reference) triple
// returns the original transaction without a second effect.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (models.Transaction, error) {
	if err := validate(req); err != nil {
		return models.Transaction{}, err
	}
	var txn models.Transaction
	var created bool
	var userID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		userID = account.UserID
		txn, created, err = s.applyLocked(ctx, tx, account, req)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) && req.Reference != "" {
			// Lost an idempotency race; the other writer's row is the result.
			return s.lookupExisting(ctx, req)
		}
		return models.Transaction{}, TranslateError(err)
	}
	if created {
		s.broadcast(userID, txn)
	}
	return txn, nil
}

// CommitInTx is the tx-scoped variant for components that bundle their own
// writes (ownership rows, interaction rows, counters) with the commit.
// The caller owns the surrounding transaction; the returned bool is false
// when the request deduplicated against an earlier commit.
func (s *Service) CommitInTx(ctx context.Context, tx store.Tx, req CommitRequest) (models.Transaction, bool, error) {
	if err := validate(req); err != nil {
		return models.Transaction{}, false, err
	}
	account, err := s.lockAccount(ctx, tx, req.AccountID)
	if err != nil {
		return models.Transaction{}, false, err
	}
	return s.applyLocked(ctx, tx, account, req)
}

// CommitPairInTx commits a debit and a credit on two different accounts as
// one atomic unit. Locks are taken in ascending account-id order so
// concurrent pairs cannot deadlock.
func (s *Service) CommitPairInTx(ctx context.Context, tx store.Tx, debit, credit CommitRequest) (models.Transaction, models.Transaction, error) {
	if err := validate(debit); err != nil {
		return models.Transaction{}, models.Transaction{}, err
	}
	if err := validate(credit); err != nil {
		return models.Transaction{}, models.Transaction{}, err
	}
	if debit.AccountID == credit.AccountID {
		return models.Transaction{}, models.Transaction{}, ErrInvalidInput
	}
	debitAccount, creditAccount, err := s.lockTwoAccounts(ctx, tx, debit.AccountID, credit.AccountID)
	if err != nil {
		return models.Transaction{}, models.Transaction{}, err
	}
	debitTxn, created, err := s.applyLocked(ctx, tx, debitAccount, debit)
	if err != nil {
		return models.Transaction{}, models.Transaction{}, err
	}
	if !created {
		// The debit leg deduplicated, so the whole pair already committed.
		// Re-read the stored credit leg instead of crediting twice.
		var creditTxn models.Transaction
		if credit.Reference != "" {
			creditTxn, err = s.txns.GetByDedupeKey(ctx, tx, credit.AccountID, credit.Source, credit.Reference)
			if err != nil {
				return models.Transaction{}, models.Transaction{}, err
			}
		}
		return debitTxn, creditTxn, nil
	}
	creditTxn, _, err := s.applyLocked(ctx, tx, creditAccount, credit)
	if err != nil {
		return models.Transaction{}, models.Transaction{}, err
	}
	return debitTxn, creditTxn, nil
}

// GrantFreeCommentInTx and ConsumeFreeCommentInTx mutate the free-comment
// counter under the caller's transaction. Consume reports whether a credit
// was available.
func (s *Service) GrantFreeCommentInTx(ctx context.Context, tx store.Tx, accountID string) error {
	_, err := s.accounts.AdjustFreeCommentCredits(ctx, tx, accountID, 1)
	return err
}

func (s *Service) ConsumeFreeCommentInTx(ctx context.Context, tx store.Tx, accountID string) (bool, error) {
	affected, err := s.accounts.AdjustFreeCommentCredits(ctx, tx, accountID, -1)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AddPenaltyInTx raises the moderation signal. Penalty score is not
// spendable and never decreases, so this is an unconditional increment.
func (s *Service) AddPenaltyInTx(ctx context.Context, tx store.Tx, accountID string, weight int64) error {
	if weight < 0 {
		return ErrInvalidInput
	}
	return s.accounts.AddPenalty(ctx, tx, accountID, weight)
}

type ReplayResult struct {
	AccountID       string `json:"account_id"`
	StoredBalance   int64  `json:"stored_balance"`
	ReplayedBalance int64  `json:"replayed_balance"`
	Frozen          bool   `json:"frozen"`
}

// Replay recomputes the balance from the full transaction history. A
// mismatch freezes the account in the same transaction and reports
// ErrLedgerIntegrity; the drift is never corrected silently.
func (s *Service) Replay(ctx context.Context, accountID, actorID string) (ReplayResult, error) {
	var result ReplayResult
	mismatch := false
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		sum, err := s.txns.SumByAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		result = ReplayResult{
			AccountID:       accountID,
			StoredBalance:   account.SpendableBalance,
			ReplayedBalance: sum,
			Frozen:          account.Frozen,
		}
		if sum != account.SpendableBalance {
			mismatch = true
			result.Frozen = true
			if err := s.accounts.SetFrozen(ctx, tx, accountID, true); err != nil {
				return err
			}
			data, _ := json.Marshal(result)
			return s.audit.Log(ctx, tx, actorID, "ledger_integrity_failure", "account", accountID, string(data))
		}
		return nil
	})
	if err != nil {
		return ReplayResult{}, TranslateError(err)
	}
	if mismatch {
		return result, ErrLedgerIntegrity
	}
	return result, nil
}

// Unfreeze lifts the integrity halt, but only after replay agrees with the
// cache again. An operator must have reconciled the rows by hand first.
func (s *Service) Unfreeze(ctx context.Context, accountID, actorID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		sum, err := s.txns.SumByAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if sum != account.SpendableBalance {
			return ErrLedgerIntegrity
		}
		if err := s.accounts.SetFrozen(ctx, tx, accountID, false); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, actorID, "account_unfrozen", "account", accountID, "{}")
	})
	return TranslateError(err)
}

func (s *Service) applyLocked(ctx context.Context, tx store.Tx, account models.Account, req CommitRequest) (models.Transaction, bool, error) {
	if account.Frozen {
		return models.Transaction{}, false, ErrAccountFrozen
	}
	if req.Reference != "" {
		existing, err := s.txns.GetByDedupeKey(ctx, tx, req.AccountID, req.Source, req.Reference)
		if err == nil {
			return existing, false, nil
		}
		if !store.IsNotFound(err) {
			return models.Transaction{}, false, err
		}
	}
	amount := req.Amount
	if req.ClampToBalance && amount < -account.SpendableBalance {
		amount = -account.SpendableBalance
	}
	newBalance := account.SpendableBalance + amount
	if newBalance < 0 {
		return models.Transaction{}, false, ErrInsufficientFunds
	}
	totalXP := account.TotalXP
	if req.Kind == models.KindEarn {
		totalXP += amount
	}
	txn := models.Transaction{
		ID:           uuid.NewString(),
		AccountID:    req.AccountID,
		Kind:         req.Kind,
		Amount:       amount,
		Source:       req.Source,
		Reference:    req.Reference,
		Note:         req.Note,
		BalanceAfter: newBalance,
	}
	if err := s.txns.Create(ctx, tx, store.TransactionInput{
		ID:           txn.ID,
		AccountID:    txn.AccountID,
		Kind:         txn.Kind,
		Amount:       txn.Amount,
		Source:       txn.Source,
		Reference:    txn.Reference,
		Note:         txn.Note,
		BalanceAfter: txn.BalanceAfter,
	}); err != nil {
		return models.Transaction{}, false, err
	}
	if err := s.accounts.UpdateBalances(ctx, tx, req.AccountID, newBalance, totalXP); err != nil {
		return models.Transaction{}, false, err
	}
	data, _ := json.Marshal(map[string]any{
		"transaction_id": txn.ID,
		"kind":           txn.Kind,
		"amount":         txn.Amount,
	})
	if err := s.audit.Log(ctx, tx, account.UserID, string(req.Source), "transaction", txn.ID, string(data)); err != nil {
		return models.Transaction{}, false, err
	}
	return txn, true, nil
}

func (s *Service) lockAccount(ctx context.Context, tx store.Tx, accountID string) (models.Account, error) {
	account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

func (s *Service) lockTwoAccounts(ctx context.Context, tx store.Tx, firstID, secondID string) (models.Account, models.Account, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := s.lockAccount(ctx, tx, leftID)
	if err != nil {
		return models.Account{}, models.Account{}, err
	}
	right, err := s.lockAccount(ctx, tx, rightID)
	if err != nil {
		return models.Account{}, models.Account{}, err
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

func (s *Service) lookupExisting(ctx context.Context, req CommitRequest) (models.Transaction, error) {
	var txn models.Transaction
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		existing, err := s.txns.GetByDedupeKey(ctx, tx, req.AccountID, req.Source, req.Reference)
		if err != nil {
			return err
		}
		txn = existing
		return nil
	})
	if err != nil {
		return models.Transaction{}, TranslateError(err)
	}
	return txn, nil
}

func (s *Service) broadcast(userID string, txn models.Transaction) {
	if userID == "" {
		return
	}
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		AccountID: txn.AccountID,
		Balance:   txn.BalanceAfter,
	})
}

// Broadcast pushes a balance snapshot to the account owner's websocket
// clients. Components using the tx-scoped commits call this after their
// transaction has committed, never inside it.
func (s *Service) Broadcast(userID, accountID string, balance int64) {
	if userID == "" {
		return
	}
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		AccountID: accountID,
		Balance:   balance,
	})
}

// TranslateError maps storage-level failures onto the ledger taxonomy:
// lock_timeout expiry becomes the retryable ErrBusy, everything else
// passes through.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if db.IsLockTimeout(err) {
		return ErrBusy
	}
	return err
}
