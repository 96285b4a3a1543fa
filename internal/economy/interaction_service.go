package economy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"xpledger/internal/config"
	"xpledger/internal/db"
	"xpledger/internal/ledger"
	"xpledger/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrAlreadyAtTier            = errors.New("interaction already at tier")
	ErrQuizNotPassed            = errors.New("gating quiz not passed")
	ErrUnknownInteractionTarget = errors.New("unknown interaction target")
	ErrInvalidInteraction       = errors.New("invalid interaction")
)

// InteractionService prices comments and runs the reaction tier state
// machine. It owns comment and interaction rows; every XP movement is
// delegated to the ledger inside the same transaction.
type InteractionService struct {
	txRunner     db.TxRunner
	ledger       Ledger
	accounts     AccountStore
	comments     CommentStore
	interactions InteractionStore
	quizzes      QuizStore
	audit        AuditStore
	cfg          config.Economy
}

func NewInteractionService(txRunner db.TxRunner, ledgerSvc Ledger, accounts AccountStore, comments CommentStore, interactions InteractionStore, quizzes QuizStore, audit AuditStore, cfg config.Economy) *InteractionService {
	return &InteractionService{
		txRunner:     txRunner,
		ledger:       ledgerSvc,
		accounts:     accounts,
		comments:     comments,
		interactions: interactions,
		quizzes:      quizzes,
		audit:        audit,
		cfg:          cfg,
	}
}

type PostCommentRequest struct {
	AccountID string
	ArticleID string
	ParentID  *string
	Body      string
}

type PostCommentResult struct {
	CommentID   string
	Transaction models.Transaction
	UsedCredit  bool
}

// PostComment charges the configured posting cost, or consumes one
// free-comment credit and records a zero-amount transaction so the audit
// trail stays unbroken.
func (s *InteractionService) PostComment(ctx context.Context, req PostCommentRequest) (PostCommentResult, error) {
	if req.AccountID == "" || req.ArticleID == "" || req.Body == "" {
		return PostCommentResult{}, ledger.ErrInvalidInput
	}
	// The gate rests on the server-side pass record alone. Clients do not
	// get to assert their own quiz status.
	passed, err := s.quizzes.HasPassed(ctx, req.AccountID, req.ArticleID)
	if err != nil {
		return PostCommentResult{}, err
	}
	if !passed {
		return PostCommentResult{}, ErrQuizNotPassed
	}
	cost := s.cfg.CommentCost
	if req.ParentID != nil {
		if _, err := s.comments.GetByID(ctx, *req.ParentID); err != nil {
			if err == sql.ErrNoRows {
				return PostCommentResult{}, ErrUnknownInteractionTarget
			}
			return PostCommentResult{}, err
		}
		cost = s.cfg.ReplyCost
	}
	account, err := s.accounts.GetByID(ctx, req.AccountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return PostCommentResult{}, ledger.ErrAccountNotFound
		}
		return PostCommentResult{}, err
	}

	commentID := uuid.NewString()
	result := PostCommentResult{CommentID: commentID}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		consumed, err := s.ledger.ConsumeFreeCommentInTx(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		amount := -cost
		if consumed {
			amount = 0
		}
		result.UsedCredit = consumed
		txn, _, err := s.ledger.CommitInTx(ctx, tx, ledger.CommitRequest{
			AccountID: req.AccountID,
			Kind:      models.KindSpend,
			Amount:    amount,
			Source:    models.SourceCommentPost,
			Reference: commentID,
		})
		if err != nil {
			return err
		}
		result.Transaction = txn
		return s.comments.Create(ctx, tx, commentID, req.ArticleID, req.AccountID, req.ParentID, req.Body)
	})
	if err != nil {
		return PostCommentResult{}, ledger.TranslateError(err)
	}
	s.ledger.Broadcast(account.UserID, req.AccountID, result.Transaction.BalanceAfter)
	return result, nil
}

type ReactionResult struct {
	Tier           string
	ReactorBalance int64
	AuthorCredit   int64
}

// Escalate moves the reactor one tier up, charging the marginal cost and
// crediting the author half of it, both legs in one atomic unit.
func (s *InteractionService) Escalate(ctx context.Context, accountID, commentID string) (ReactionResult, error) {
	comment, author, reactor, err := s.loadReactionParties(ctx, accountID, commentID)
	if err != nil {
		return ReactionResult{}, err
	}

	var result ReactionResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		inter, found, err := s.currentInteraction(ctx, tx, accountID, commentID)
		if err != nil {
			return err
		}
		current := 0
		if found {
			if inter.Polarity == models.PolarityNegative {
				return ErrInvalidInteraction
			}
			current = tierRank(inter.Tier)
		}
		next := current + 1
		if next > len(positiveTiers) {
			return ErrAlreadyAtTier
		}
		marginal := tierCost(s.cfg, next) - tierCost(s.cfg, current)
		share := authorShare(s.cfg, marginal)
		note := "reaction " + tierName(next) + " on " + commentID

		debit := ledger.CommitRequest{
			AccountID: accountID,
			Kind:      models.KindSpend,
			Amount:    -marginal,
			Source:    models.SourceReaction,
			Note:      note,
		}
		if share > 0 {
			credit := ledger.CommitRequest{
				AccountID: comment.AuthorAccountID,
				Kind:      models.KindTransferIn,
				Amount:    share,
				Source:    models.SourceReaction,
				Note:      note,
			}
			debitTxn, creditTxn, err := s.ledger.CommitPairInTx(ctx, tx, debit, credit)
			if err != nil {
				return err
			}
			result.ReactorBalance = debitTxn.BalanceAfter
			result.AuthorCredit = creditTxn.Amount
		} else {
			debitTxn, _, err := s.ledger.CommitInTx(ctx, tx, debit)
			if err != nil {
				return err
			}
			result.ReactorBalance = debitTxn.BalanceAfter
		}

		if found {
			if err := s.interactions.UpdateTier(ctx, tx, inter.ID, tierName(next)); err != nil {
				return err
			}
			if err := s.comments.AdjustTierCount(ctx, tx, commentID, tierName(current), -1); err != nil {
				return err
			}
		} else {
			if err := s.interactions.Create(ctx, tx, uuid.NewString(), accountID, commentID, models.PolarityPositive, tierName(next)); err != nil {
				return err
			}
		}
		result.Tier = tierName(next)
		return s.comments.AdjustTierCount(ctx, tx, commentID, tierName(next), 1)
	})
	if err != nil {
		return ReactionResult{}, ledger.TranslateError(err)
	}
	s.ledger.Broadcast(reactor.UserID, accountID, result.ReactorBalance)
	if result.AuthorCredit > 0 {
		s.broadcastAuthor(ctx, author, comment.AuthorAccountID)
	}
	return result, nil
}

// Deescalate reverses the reactor's last transition: the marginal cost
// comes back as a REFUND and the author's matching reward is reversed with
// a compensating moderation_reversal, clamped so an author who already
// spent the reward is drained only to zero.
func (s *InteractionService) Deescalate(ctx context.Context, accountID, commentID string) (ReactionResult, error) {
	comment, author, reactor, err := s.loadReactionParties(ctx, accountID, commentID)
	if err != nil {
		return ReactionResult{}, err
	}

	var result ReactionResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		inter, found, err := s.currentInteraction(ctx, tx, accountID, commentID)
		if err != nil {
			return err
		}
		if !found || inter.Polarity == models.PolarityNegative {
			return ErrInvalidInteraction
		}
		current := tierRank(inter.Tier)
		next := current - 1
		marginal := tierCost(s.cfg, current) - tierCost(s.cfg, next)
		share := authorShare(s.cfg, marginal)
		note := "reaction undo " + inter.Tier + " on " + commentID

		credit := ledger.CommitRequest{
			AccountID: accountID,
			Kind:      models.KindRefund,
			Amount:    marginal,
			Source:    models.SourceReaction,
			Note:      note,
		}
		if share > 0 {
			debit := ledger.CommitRequest{
				AccountID:      comment.AuthorAccountID,
				Kind:           models.KindTransferOut,
				Amount:         -share,
				Source:         models.SourceModerationReversal,
				Note:           note,
				ClampToBalance: true,
			}
			debitTxn, creditTxn, err := s.ledger.CommitPairInTx(ctx, tx, debit, credit)
			if err != nil {
				return err
			}
			result.ReactorBalance = creditTxn.BalanceAfter
			// The clamp may have reduced the debit, so report what applied.
			result.AuthorCredit = debitTxn.Amount
		} else {
			creditTxn, _, err := s.ledger.CommitInTx(ctx, tx, credit)
			if err != nil {
				return err
			}
			result.ReactorBalance = creditTxn.BalanceAfter
		}

		if err := s.comments.AdjustTierCount(ctx, tx, commentID, tierName(current), -1); err != nil {
			return err
		}
		if next == 0 {
			result.Tier = ""
			return s.interactions.Delete(ctx, tx, inter.ID)
		}
		result.Tier = tierName(next)
		if err := s.interactions.UpdateTier(ctx, tx, inter.ID, tierName(next)); err != nil {
			return err
		}
		return s.comments.AdjustTierCount(ctx, tx, commentID, tierName(next), 1)
	})
	if err != nil {
		return ReactionResult{}, ledger.TranslateError(err)
	}
	s.ledger.Broadcast(reactor.UserID, accountID, result.ReactorBalance)
	if result.AuthorCredit != 0 {
		s.broadcastAuthor(ctx, author, comment.AuthorAccountID)
	}
	return result, nil
}

// ClearReaction unwinds the reactor's positive reaction completely in one
// transaction: the full absolute tier cost comes back as a REFUND and the
// author's accumulated per-step rewards are reversed, clamped to the
// author's balance. Reports cannot be cleared by their filer.
func (s *InteractionService) ClearReaction(ctx context.Context, accountID, commentID string) (ReactionResult, error) {
	comment, author, reactor, err := s.loadReactionParties(ctx, accountID, commentID)
	if err != nil {
		return ReactionResult{}, err
	}

	var result ReactionResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		inter, found, err := s.currentInteraction(ctx, tx, accountID, commentID)
		if err != nil {
			return err
		}
		if !found || inter.Polarity == models.PolarityNegative {
			return ErrInvalidInteraction
		}
		rank := tierRank(inter.Tier)
		refund := tierCost(s.cfg, rank)
		reversal := authorShareTotal(s.cfg, rank)
		note := "reaction cleared on " + commentID

		credit := ledger.CommitRequest{
			AccountID: accountID,
			Kind:      models.KindRefund,
			Amount:    refund,
			Source:    models.SourceReaction,
			Note:      note,
		}
		if reversal > 0 {
			debit := ledger.CommitRequest{
				AccountID:      comment.AuthorAccountID,
				Kind:           models.KindTransferOut,
				Amount:         -reversal,
				Source:         models.SourceModerationReversal,
				Note:           note,
				ClampToBalance: true,
			}
			debitTxn, creditTxn, err := s.ledger.CommitPairInTx(ctx, tx, debit, credit)
			if err != nil {
				return err
			}
			result.ReactorBalance = creditTxn.BalanceAfter
			result.AuthorCredit = debitTxn.Amount
		} else {
			creditTxn, _, err := s.ledger.CommitInTx(ctx, tx, credit)
			if err != nil {
				return err
			}
			result.ReactorBalance = creditTxn.BalanceAfter
		}

		if err := s.comments.AdjustTierCount(ctx, tx, commentID, inter.Tier, -1); err != nil {
			return err
		}
		result.Tier = ""
		return s.interactions.Delete(ctx, tx, inter.ID)
	})
	if err != nil {
		return ReactionResult{}, ledger.TranslateError(err)
	}
	s.ledger.Broadcast(reactor.UserID, accountID, result.ReactorBalance)
	if result.AuthorCredit != 0 {
		s.broadcastAuthor(ctx, author, comment.AuthorAccountID)
	}
	return result, nil
}

type ReportResult struct {
	Tier            string
	ReporterBalance int64
	ReportCount     int64
}

// Report files a negative-tier report: the reporter pays the tier's cost,
// the comment's report counter and the author's penalty score rise, and
// the author's balance is never touched.
func (s *InteractionService) Report(ctx context.Context, accountID, commentID, tier string) (ReportResult, error) {
	cost, ok := reportCost(s.cfg, tier)
	if !ok {
		return ReportResult{}, ErrInvalidInteraction
	}
	comment, _, reactor, err := s.loadReactionParties(ctx, accountID, commentID)
	if err != nil {
		return ReportResult{}, err
	}

	var result ReportResult
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, found, err := s.currentInteraction(ctx, tx, accountID, commentID)
		if err != nil {
			return err
		}
		if found {
			// One active state per (reactor, comment); there is no path
			// between the positive ladder and the report tiers.
			return ErrAlreadyAtTier
		}
		txn, _, err := s.ledger.CommitInTx(ctx, tx, ledger.CommitRequest{
			AccountID: accountID,
			Kind:      models.KindSpend,
			Amount:    -cost,
			Source:    models.SourceReaction,
			Note:      "report " + tier + " on " + commentID,
		})
		if err != nil {
			return err
		}
		result.ReporterBalance = txn.BalanceAfter
		if err := s.ledger.AddPenaltyInTx(ctx, tx, comment.AuthorAccountID, penaltyWeight(s.cfg, tier)); err != nil {
			return err
		}
		if err := s.comments.IncrementReportCount(ctx, tx, commentID, 1); err != nil {
			return err
		}
		result.Tier = tier
		result.ReportCount = comment.ReportCount + 1
		return s.interactions.Create(ctx, tx, uuid.NewString(), accountID, commentID, models.PolarityNegative, tier)
	})
	if err != nil {
		return ReportResult{}, ledger.TranslateError(err)
	}
	s.ledger.Broadcast(reactor.UserID, accountID, result.ReporterBalance)
	return result, nil
}

// RemoveInteraction is the moderation path that deletes an interaction
// record outright. Positive reactions are unwound completely: the reactor
// gets the full absolute tier cost back and the author's accumulated
// reward is reversed. Negative reports only drop the report counter;
// penalty score is monotonic and stays.
func (s *InteractionService) RemoveInteraction(ctx context.Context, interactionID, actorID string) error {
	inter, err := s.interactions.GetByID(ctx, interactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrUnknownInteractionTarget
		}
		return err
	}
	comment, err := s.comments.GetByID(ctx, inter.CommentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrUnknownInteractionTarget
		}
		return err
	}

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		locked, found, err := s.currentInteraction(ctx, tx, inter.AccountID, inter.CommentID)
		if err != nil {
			return err
		}
		if !found {
			return ErrUnknownInteractionTarget
		}
		if locked.Polarity == models.PolarityPositive {
			rank := tierRank(locked.Tier)
			refund := tierCost(s.cfg, rank)
			reversal := authorShareTotal(s.cfg, rank)
			note := "moderation removal of " + locked.Tier + " on " + inter.CommentID
			credit := ledger.CommitRequest{
				AccountID: inter.AccountID,
				Kind:      models.KindRefund,
				Amount:    refund,
				Source:    models.SourceModerationReversal,
				Note:      note,
			}
			if reversal > 0 {
				debit := ledger.CommitRequest{
					AccountID:      comment.AuthorAccountID,
					Kind:           models.KindTransferOut,
					Amount:         -reversal,
					Source:         models.SourceModerationReversal,
					Note:           note,
					ClampToBalance: true,
				}
				if _, _, err := s.ledger.CommitPairInTx(ctx, tx, debit, credit); err != nil {
					return err
				}
			} else if refund > 0 {
				if _, _, err := s.ledger.CommitInTx(ctx, tx, credit); err != nil {
					return err
				}
			}
			if err := s.comments.AdjustTierCount(ctx, tx, inter.CommentID, locked.Tier, -1); err != nil {
				return err
			}
		} else {
			if err := s.comments.IncrementReportCount(ctx, tx, inter.CommentID, -1); err != nil {
				return err
			}
		}
		if err := s.interactions.Delete(ctx, tx, locked.ID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"interaction_id": locked.ID,
			"comment_id":     inter.CommentID,
			"tier":           locked.Tier,
		})
		return s.audit.Log(ctx, tx, actorID, "interaction_removed", "interaction", locked.ID, string(data))
	})
	return ledger.TranslateError(err)
}

func (s *InteractionService) loadReactionParties(ctx context.Context, accountID, commentID string) (models.Comment, models.Account, models.Account, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Comment{}, models.Account{}, models.Account{}, ErrUnknownInteractionTarget
		}
		return models.Comment{}, models.Account{}, models.Account{}, err
	}
	if comment.AuthorAccountID == accountID {
		return models.Comment{}, models.Account{}, models.Account{}, ErrInvalidInteraction
	}
	author, err := s.accounts.GetByID(ctx, comment.AuthorAccountID)
	if err != nil {
		return models.Comment{}, models.Account{}, models.Account{}, err
	}
	reactor, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Comment{}, models.Account{}, models.Account{}, ledger.ErrAccountNotFound
		}
		return models.Comment{}, models.Account{}, models.Account{}, err
	}
	return comment, author, reactor, nil
}

func (s *InteractionService) currentInteraction(ctx context.Context, tx *sqlx.Tx, accountID, commentID string) (models.Interaction, bool, error) {
	inter, err := s.interactions.GetForUpdate(ctx, tx, accountID, commentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Interaction{}, false, nil
		}
		return models.Interaction{}, false, err
	}
	return inter, true, nil
}

func (s *InteractionService) broadcastAuthor(ctx context.Context, author models.Account, accountID string) {
	refreshed, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		s.ledger.Broadcast(author.UserID, accountID, author.SpendableBalance)
		return
	}
	s.ledger.Broadcast(author.UserID, accountID, refreshed.SpendableBalance)
}
